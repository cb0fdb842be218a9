package evaluator

import (
	"context"
	"time"

	"go.uber.org/zap"

	commonredis "wisefido-asset/common/redis"
	"wisefido-asset/internal/domain"
)

// Notifier 告警提交后的通知出口
type Notifier interface {
	NotifyAlert(ctx context.Context, a *domain.Asset, alert *domain.Alert) error
}

// AlertMessage 对外发布的告警消息
type AlertMessage struct {
	AlertID   string           `json:"alert_id"`
	AssetID   string           `json:"asset_id"`
	AssetCode string           `json:"asset_code"`
	AssetName string           `json:"asset_name"`
	Location  string           `json:"location"`
	Type      domain.AlertType `json:"alert_type"`
	Severity  domain.Severity  `json:"severity"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewAlertMessage 组装告警消息
func NewAlertMessage(a *domain.Asset, alert *domain.Alert) AlertMessage {
	return AlertMessage{
		AlertID:   alert.ID,
		AssetID:   a.ID,
		AssetCode: a.AssetCode,
		AssetName: a.Name,
		Location:  a.Location,
		Type:      alert.Type,
		Severity:  alert.Severity,
		Message:   alert.Message,
		CreatedAt: alert.CreatedAt,
	}
}

// StreamNotifier 将告警写入 Redis Stream，供下游通知服务消费
type StreamNotifier struct {
	client *commonredis.Client
	stream string
	logger *zap.Logger
}

func NewStreamNotifier(client *commonredis.Client, stream string, logger *zap.Logger) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, logger: logger}
}

func (n *StreamNotifier) NotifyAlert(ctx context.Context, a *domain.Asset, alert *domain.Alert) error {
	id, err := commonredis.PublishJSONToStream(ctx, n.client, n.stream, NewAlertMessage(a, alert))
	if err != nil {
		return err
	}
	n.logger.Debug("Alert published to stream",
		zap.String("stream", n.stream),
		zap.String("message_id", id),
		zap.String("alert_id", alert.ID),
	)
	return nil
}
