// Package ledger 使用会话台账：开启、结束与查询。
// 写操作须在调用方持有资产锁的事务中执行。
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/repository"
)

// DefaultHistoryLimit 资产详情页展示的会话数
const DefaultHistoryLimit = 10

// Ledger 会话台账
type Ledger struct {
	store  repository.Store
	logger *zap.Logger
}

func New(store repository.Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger}
}

// OpenParams 开启会话参数
type OpenParams struct {
	Asset                 *domain.Asset
	OperatorID            *string
	Start                 time.Time
	ExpectedDurationHours *float64
	Reason                string
	Department            string
	Notes                 string
	SubjectRef            *string
	Source                domain.SessionSource
}

// Open 开启会话，资产已有 active 会话时返回 domain.ErrAssetUnavailable
func (l *Ledger) Open(ctx context.Context, tx repository.Tx, p OpenParams) (*domain.UsageSession, error) {
	if p.Asset == nil {
		return nil, fmt.Errorf("%w: asset is required", domain.ErrInvalidInput)
	}
	active, err := tx.Sessions().GetActiveSession(ctx, p.Asset.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domain.ErrAssetUnavailable
	}

	s := &domain.UsageSession{
		ID:                    uuid.NewString(),
		AssetID:               p.Asset.ID,
		OperatorID:            p.OperatorID,
		StartTime:             p.Start,
		ExpectedDurationHours: p.ExpectedDurationHours,
		Reason:                p.Reason,
		Department:            p.Department,
		Status:                domain.SessionActive,
		Notes:                 p.Notes,
		SubjectRef:            p.SubjectRef,
		Source:                p.Source,
	}
	if err := tx.Sessions().CreateSession(ctx, s); err != nil {
		return nil, err
	}

	l.logger.Info("Usage session opened",
		zap.String("session_id", s.ID),
		zap.String("asset_code", p.Asset.AssetCode),
		zap.String("source", string(s.Source)),
		zap.Time("start_time", s.StartTime),
	)
	return s, nil
}

// Close 结束会话，非 active 会话返回 domain.ErrSessionNotActive
func (l *Ledger) Close(ctx context.Context, tx repository.Tx, s *domain.UsageSession, end time.Time) error {
	if s.Status != domain.SessionActive {
		return domain.ErrSessionNotActive
	}
	s.Close(end)
	if err := tx.Sessions().UpdateSession(ctx, s); err != nil {
		return err
	}

	l.logger.Info("Usage session closed",
		zap.String("session_id", s.ID),
		zap.String("asset_id", s.AssetID),
		zap.Float64("duration_hours", s.DurationHours()),
	)
	return nil
}

// Get 查询会话
func (l *Ledger) Get(ctx context.Context, sessionID string) (*domain.UsageSession, error) {
	return l.store.Sessions().GetSession(ctx, sessionID)
}

// Active 资产当前的 active 会话，没有时返回 nil
func (l *Ledger) Active(ctx context.Context, assetID string) (*domain.UsageSession, error) {
	return l.store.Sessions().GetActiveSession(ctx, assetID)
}

// History 资产最近的会话，按开始时间倒序
func (l *Ledger) History(ctx context.Context, assetID string, limit int) ([]*domain.UsageSession, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return l.store.Sessions().ListSessions(ctx, domain.SessionFilter{AssetID: assetID, Limit: limit})
}

// List 会话列表
func (l *Ledger) List(ctx context.Context, filter domain.SessionFilter) ([]*domain.UsageSession, error) {
	return l.store.Sessions().ListSessions(ctx, filter)
}
