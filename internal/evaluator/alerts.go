package evaluator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
)

// List 查询告警
func (e *Evaluator) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	return e.store.Alerts().ListAlerts(ctx, filter)
}

// Resolve 解决告警；已解决的告警原样返回
func (e *Evaluator) Resolve(ctx context.Context, alertID, resolvedBy string) (*domain.Alert, error) {
	var by *string
	if s := strings.TrimSpace(resolvedBy); s != "" {
		by = &s
	}
	alert, err := e.store.Alerts().ResolveAlert(ctx, alertID, by, e.clock.Now())
	if err != nil {
		return nil, err
	}
	e.logger.Info("Alert resolved",
		zap.String("alert_id", alert.ID),
		zap.String("alert_type", string(alert.Type)),
		zap.String("resolved_by", resolvedBy),
	)
	return alert, nil
}
