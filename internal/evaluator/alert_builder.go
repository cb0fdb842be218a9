package evaluator

import (
	"time"

	"github.com/google/uuid"

	"wisefido-asset/internal/domain"
)

// BuildAlert 由候选构建未解决的告警记录
func BuildAlert(assetID string, c Candidate, at time.Time) *domain.Alert {
	return &domain.Alert{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		Type:      c.Type,
		Message:   c.Message,
		Severity:  c.Severity,
		CreatedAt: at,
	}
}
