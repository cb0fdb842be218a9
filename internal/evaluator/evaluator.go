// Package evaluator 告警引擎：租赁闲置、长期未用与超时使用。
package evaluator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/clock"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/repository"
)

// Options 告警引擎依赖
type Options struct {
	Atlas *atlas.Atlas
	Store repository.Store
	Clock clock.Clock
	// Dedup 为 true 时条件类告警在同类未解决告警存在期间不重复产生
	Dedup     bool
	Notifiers []Notifier
	Logger    *zap.Logger
}

// Evaluator 告警评估器
type Evaluator struct {
	store     repository.Store
	clock     clock.Clock
	dedup     bool
	notifiers []Notifier
	logger    *zap.Logger

	rules   []assetRule
	overuse overuseRule
}

// New 创建评估器
func New(opts Options) *Evaluator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Atlas == nil {
		opts.Atlas = atlas.Default()
	}
	return &Evaluator{
		store:     opts.Store,
		clock:     opts.Clock,
		dedup:     opts.Dedup,
		notifiers: opts.Notifiers,
		logger:    opts.Logger,
		rules:     []assetRule{rentalExpiryRule{}, inactivityRule{}},
		overuse:   overuseRule{atlas: opts.Atlas},
	}
}

// Evaluate 按资产当前状态评估条件规则，不产生副作用
func (e *Evaluator) Evaluate(a *domain.Asset, now time.Time) []Candidate {
	if a.Status == domain.StatusRetired {
		return nil
	}
	var out []Candidate
	for _, rule := range e.rules {
		if c := rule.evaluate(a, now); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// EvaluateClosedSession 评估已结束会话是否超时使用
func (e *Evaluator) EvaluateClosedSession(a *domain.Asset, s *domain.UsageSession) *Candidate {
	return e.overuse.evaluate(a, s)
}

// Check 在调用方事务内评估并写入告警；closed 为本次结束的会话，可为 nil
func (e *Evaluator) Check(ctx context.Context, tx repository.Tx, a *domain.Asset, closed *domain.UsageSession) ([]*domain.Alert, error) {
	now := e.clock.Now()
	candidates := e.Evaluate(a, now)
	if c := e.EvaluateClosedSession(a, closed); c != nil {
		candidates = append(candidates, *c)
	}
	return e.Record(ctx, tx, a, candidates, now)
}

// Record 持久化候选告警，返回实际写入的告警
func (e *Evaluator) Record(ctx context.Context, tx repository.Tx, a *domain.Asset, candidates []Candidate, at time.Time) ([]*domain.Alert, error) {
	var created []*domain.Alert
	for _, c := range candidates {
		if e.dedup && c.Type != domain.AlertOveruse {
			open, err := tx.Alerts().HasOpenAlert(ctx, a.ID, c.Type)
			if err != nil {
				return nil, err
			}
			if open {
				continue
			}
		}
		alert := BuildAlert(a.ID, c, at)
		if err := tx.Alerts().CreateAlert(ctx, alert); err != nil {
			return nil, err
		}
		e.logger.Info("Alert raised",
			zap.String("asset_code", a.AssetCode),
			zap.String("alert_type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
			zap.String("message", alert.Message),
		)
		created = append(created, alert)
	}
	return created, nil
}

// Publish 提交后通知；通知失败只记录
func (e *Evaluator) Publish(ctx context.Context, a *domain.Asset, alerts []*domain.Alert) {
	for _, alert := range alerts {
		for _, n := range e.notifiers {
			if err := n.NotifyAlert(ctx, a, alert); err != nil {
				e.logger.Warn("Alert notification failed",
					zap.String("alert_id", alert.ID),
					zap.String("asset_code", a.AssetCode),
					zap.Error(err),
				)
			}
		}
	}
}

// CheckAsset 单个资产的独立评估（加锁、写入、通知）
func (e *Evaluator) CheckAsset(ctx context.Context, assetCode string) ([]*domain.Alert, error) {
	var (
		asset   *domain.Asset
		created []*domain.Alert
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := repository.LockAssetByCode(ctx, tx, assetCode)
		if err != nil {
			return err
		}
		asset = a
		created, err = e.Check(ctx, tx, a, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Publish(ctx, asset, created)
	return created, nil
}

// SweepResult 巡检统计
type SweepResult struct {
	Assets int `json:"assets"`
	Alerts int `json:"alerts"`
	Failed int `json:"failed"`
}

// Sweep 评估全部未报废资产，单个资产失败不影响其余资产
func (e *Evaluator) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	assets, err := e.store.Assets().ListAssets(ctx, domain.AssetFilter{
		Statuses: []domain.AssetStatus{
			domain.StatusUnassociated, domain.StatusAvailable, domain.StatusInUse, domain.StatusMaintenance,
		},
	})
	if err != nil {
		return res, err
	}

	for _, a := range assets {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		created, err := e.CheckAsset(ctx, a.AssetCode)
		if err != nil {
			if errors.Is(err, domain.ErrAssetNotFound) {
				continue
			}
			res.Failed++
			e.logger.Warn("Sweep asset failed", zap.String("asset_code", a.AssetCode), zap.Error(err))
			continue
		}
		res.Assets++
		res.Alerts += len(created)
	}

	e.logger.Info("Alert sweep finished",
		zap.Int("assets", res.Assets),
		zap.Int("alerts", res.Alerts),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// RunSweeper 周期巡检，直到 ctx 取消
func (e *Evaluator) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.Sweep(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("Alert sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
