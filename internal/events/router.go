// Package events 将 RFID 定位信号与人工开始/结束操作转换为台账与资产状态变更。
package events

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wisefido-asset/internal/clock"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/evaluator"
	"wisefido-asset/internal/ledger"
	"wisefido-asset/internal/registry"
	"wisefido-asset/internal/repository"
)

// Outcome 定位信号处理结果
type Outcome string

const (
	OutcomeOpened  Outcome = "opened"
	OutcomeClosed  Outcome = "closed"
	OutcomeIgnored Outcome = "ignored"
)

// Result 一次触发的处理结果
type Result struct {
	Outcome Outcome              `json:"outcome"`
	Asset   *domain.Asset        `json:"asset,omitempty"`
	Session *domain.UsageSession `json:"session,omitempty"`
	Alerts  []*domain.Alert      `json:"alerts,omitempty"`
}

// Options 事件路由依赖
type Options struct {
	Store           repository.Store
	Ledger          *ledger.Ledger
	Evaluator       *evaluator.Evaluator
	Clock           clock.Clock
	StorageLocation string
	Observers       []registry.Observer
	Logger          *zap.Logger
}

// Router 事件路由
type Router struct {
	store     repository.Store
	ledger    *ledger.Ledger
	evaluator *evaluator.Evaluator
	clock     clock.Clock
	storage   string
	observers []registry.Observer
	logger    *zap.Logger
}

func NewRouter(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.StorageLocation == "" {
		opts.StorageLocation = registry.DefaultLocation
	}
	return &Router{
		store:     opts.Store,
		ledger:    opts.Ledger,
		evaluator: opts.Evaluator,
		clock:     opts.Clock,
		storage:   opts.StorageLocation,
		observers: opts.Observers,
		logger:    opts.Logger,
	}
}

// IsStorage 位置是否为存放点（不区分大小写）
func (r *Router) IsStorage(location string) bool {
	return strings.EqualFold(strings.TrimSpace(location), r.storage)
}

// HandleLocationSignal 处理 RFID 信号；重复、乱序或不满足条件的信号静默忽略
func (r *Router) HandleLocationSignal(ctx context.Context, sig LocationSignal) (*Result, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = r.clock.Now()
	}

	res := &Result{Outcome: OutcomeIgnored}
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := repository.LockAssetByCode(ctx, tx, sig.AssetCode)
		if err != nil {
			return err
		}
		res.Asset = a

		switch sig.Direction {
		case DirectionEnter:
			return r.enter(ctx, tx, a, sig, res)
		case DirectionExit:
			return r.exit(ctx, tx, a, sig, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Location signal handled",
		zap.String("asset_code", sig.AssetCode),
		zap.String("location", sig.Location),
		zap.String("direction", string(sig.Direction)),
		zap.String("outcome", string(res.Outcome)),
	)
	if res.Outcome != OutcomeIgnored {
		r.afterCommit(ctx, res)
	}
	return res, nil
}

// enter 非存放点进入且资产空闲：自动开启会话；已有 active 会话时忽略
func (r *Router) enter(ctx context.Context, tx repository.Tx, a *domain.Asset, sig LocationSignal, res *Result) error {
	if r.IsStorage(sig.Location) || a.Status != domain.StatusAvailable {
		return nil
	}
	active, err := tx.Sessions().GetActiveSession(ctx, a.ID)
	if err != nil {
		return err
	}
	if active != nil {
		r.logger.Warn("Available asset already has an active session, enter ignored",
			zap.String("asset_code", a.AssetCode),
			zap.String("session_id", active.ID),
		)
		return nil
	}
	s, err := r.ledger.Open(ctx, tx, ledger.OpenParams{
		Asset:      a,
		Start:      sig.Timestamp,
		Department: sig.Location,
		Source:     domain.SourceRFID,
	})
	if err != nil {
		return err
	}

	ts := sig.Timestamp
	a.Status = domain.StatusInUse
	a.Location = sig.Location
	a.LastUsage = &ts
	a.UpdatedAt = r.clock.Now()
	if err := tx.Assets().UpdateAsset(ctx, a); err != nil {
		return err
	}

	alerts, err := r.evaluator.Check(ctx, tx, a, nil)
	if err != nil {
		return err
	}
	res.Outcome, res.Session, res.Alerts = OutcomeOpened, s, alerts
	return nil
}

// exit 离开到存放点且资产使用中：自动结束会话
func (r *Router) exit(ctx context.Context, tx repository.Tx, a *domain.Asset, sig LocationSignal, res *Result) error {
	if !r.IsStorage(sig.Location) || a.Status != domain.StatusInUse {
		return nil
	}
	s, err := tx.Sessions().GetActiveSession(ctx, a.ID)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	if err := r.ledger.Close(ctx, tx, s, sig.Timestamp); err != nil {
		return err
	}

	a.Status = domain.StatusAvailable
	a.Location = sig.Location
	a.UpdatedAt = r.clock.Now()
	if err := tx.Assets().UpdateAsset(ctx, a); err != nil {
		return err
	}

	alerts, err := r.evaluator.Check(ctx, tx, a, s)
	if err != nil {
		return err
	}
	res.Outcome, res.Session, res.Alerts = OutcomeClosed, s, alerts
	return nil
}

// StartRequest 人工开始使用
type StartRequest struct {
	AssetCode             string
	Operator              domain.Operator
	ExpectedDurationHours *float64
	SubjectRef            *string
	Reason                string
	Notes                 string
}

// Start 人工开始使用，资产非 available 时返回 domain.ErrAssetUnavailable
func (r *Router) Start(ctx context.Context, req StartRequest) (*Result, error) {
	if strings.TrimSpace(req.Operator.ID) == "" {
		return nil, fmt.Errorf("%w: operator identity is required", domain.ErrInvalidInput)
	}
	if req.ExpectedDurationHours != nil && *req.ExpectedDurationHours <= 0 {
		return nil, fmt.Errorf("%w: expected duration must be positive", domain.ErrInvalidInput)
	}

	res := &Result{Outcome: OutcomeOpened}
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := repository.LockAssetByCode(ctx, tx, req.AssetCode)
		if err != nil {
			return err
		}
		if a.Status != domain.StatusAvailable {
			return fmt.Errorf("%w: asset %s is %s", domain.ErrAssetUnavailable, a.AssetCode, a.Status)
		}

		now := r.clock.Now()
		operatorID := req.Operator.ID
		s, err := r.ledger.Open(ctx, tx, ledger.OpenParams{
			Asset:                 a,
			OperatorID:            &operatorID,
			Start:                 now,
			ExpectedDurationHours: req.ExpectedDurationHours,
			Reason:                req.Reason,
			Department:            req.Operator.Department,
			Notes:                 req.Notes,
			SubjectRef:            req.SubjectRef,
			Source:                domain.SourceManual,
		})
		if err != nil {
			return err
		}

		a.Status = domain.StatusInUse
		a.LastUsage = &now
		a.UpdatedAt = now
		if err := tx.Assets().UpdateAsset(ctx, a); err != nil {
			return err
		}
		alerts, err := r.evaluator.Check(ctx, tx, a, nil)
		if err != nil {
			return err
		}
		res.Asset, res.Session, res.Alerts = a, s, alerts
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Usage started",
		zap.String("asset_code", res.Asset.AssetCode),
		zap.String("session_id", res.Session.ID),
		zap.String("operator_id", req.Operator.ID),
	)
	r.afterCommit(ctx, res)
	return res, nil
}

// Stop 人工结束使用，会话非 active 时返回 domain.ErrSessionNotActive
func (r *Router) Stop(ctx context.Context, sessionID string, operator domain.Operator) (*Result, error) {
	s, err := r.ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res := &Result{Outcome: OutcomeClosed}
	err = r.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.LockAsset(ctx, s.AssetID); err != nil {
			return err
		}
		// 加锁后重新读取
		current, err := tx.Sessions().GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		a, err := tx.Assets().GetAsset(ctx, current.AssetID)
		if err != nil {
			return err
		}

		now := r.clock.Now()
		if err := r.ledger.Close(ctx, tx, current, now); err != nil {
			return err
		}
		if a.Status == domain.StatusInUse {
			a.Status = domain.StatusAvailable
		}
		a.UpdatedAt = now
		if err := tx.Assets().UpdateAsset(ctx, a); err != nil {
			return err
		}

		alerts, err := r.evaluator.Check(ctx, tx, a, current)
		if err != nil {
			return err
		}
		res.Asset, res.Session, res.Alerts = a, current, alerts
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Usage stopped",
		zap.String("asset_code", res.Asset.AssetCode),
		zap.String("session_id", sessionID),
		zap.String("operator_id", operator.ID),
		zap.Float64("duration_hours", res.Session.DurationHours()),
	)
	r.afterCommit(ctx, res)
	return res, nil
}

func (r *Router) afterCommit(ctx context.Context, res *Result) {
	for _, o := range r.observers {
		o.AssetChanged(ctx, res.Asset)
	}
	r.evaluator.Publish(ctx, res.Asset, res.Alerts)
}
