package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/clock"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/repository"
)

// Observer 资产状态变化的提交后回调（缓存、看板）
type Observer interface {
	AssetChanged(ctx context.Context, a *domain.Asset)
	AssetRemoved(ctx context.Context, assetCode string)
}

// Registry 资产登记服务接口，资产均以外部编码 asset_code 定位
type Registry interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Asset, error)
	Transition(ctx context.Context, assetCode string, to domain.AssetStatus) (*domain.Asset, error)
	Associate(ctx context.Context, assetCode string) (*domain.Asset, error)
	Retire(ctx context.Context, assetCode string) (*domain.Asset, error)
	Delete(ctx context.Context, assetCode string) error

	Get(ctx context.Context, assetCode string) (*domain.Asset, error)
	List(ctx context.Context, filter domain.AssetFilter) ([]*domain.Asset, error)
	Scan(ctx context.Context, assetCode string) (*ScanResult, error)
	Label(ctx context.Context, assetCode string) (string, error)
}

// registry 实现
type registry struct {
	store     repository.Store
	atlas     *atlas.Atlas
	clock     clock.Clock
	observers []Observer
	logger    *zap.Logger
}

// New 创建 Registry 实例
func New(store repository.Store, a *atlas.Atlas, clk clock.Clock, logger *zap.Logger, observers ...Observer) Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registry{store: store, atlas: a, clock: clk, observers: observers, logger: logger}
}

// RegisterRequest 资产登记请求
type RegisterRequest struct {
	AssetCode              string // 可选，为空时按序列号生成
	SerialNumber           string // AssetCode 为空时必填
	Name                   string // 可选，默认 "{分类} - {序列号}"
	Category               string // 必填，自由文本会被规范化
	Ownership              domain.Ownership
	Location               string // 可选，默认存放点
	Manufacturer           string
	Vendor                 *string    // 仅租赁
	RentalRate             *float64   // 仅租赁
	PurchaseDate           *time.Time // 可选，默认当前时间
	ExpectedLifespanMonths int        // 可选，默认 60
}

// ScanResult 扫码结果：资产与分类策略
type ScanResult struct {
	Asset  *domain.Asset `json:"asset"`
	Policy atlas.Policy  `json:"atlas_info"`
}

// DefaultLocation 新资产默认位置
const DefaultLocation = "Storage"

// Register 登记资产，编码重复时不写入任何记录
func (r *registry) Register(ctx context.Context, req RegisterRequest) (*domain.Asset, error) {
	a, err := r.buildAsset(req)
	if err != nil {
		return nil, err
	}
	if err := r.store.Assets().CreateAsset(ctx, a); err != nil {
		r.logger.Warn("Register asset failed", zap.String("asset_code", a.AssetCode), zap.Error(err))
		return nil, err
	}

	r.logger.Info("Asset registered",
		zap.String("asset_code", a.AssetCode),
		zap.String("asset_id", a.ID),
		zap.String("ownership", string(a.Ownership)),
		zap.String("status", string(a.Status)),
	)
	r.notify(ctx, a)
	return a, nil
}

func (r *registry) buildAsset(req RegisterRequest) (*domain.Asset, error) {
	if !req.Ownership.Valid() {
		return nil, fmt.Errorf("%w: unknown ownership %q", domain.ErrInvalidOwnershipFields, req.Ownership)
	}
	if req.Ownership == domain.OwnershipHospital && (req.Vendor != nil || req.RentalRate != nil) {
		return nil, fmt.Errorf("%w: hospital assets carry no vendor or rental rate", domain.ErrInvalidOwnershipFields)
	}
	if req.RentalRate != nil && *req.RentalRate < 0 {
		return nil, fmt.Errorf("%w: rental rate must not be negative", domain.ErrInvalidOwnershipFields)
	}

	category := atlas.NormalizeCategory(req.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrInvalidInput)
	}
	serial := strings.TrimSpace(req.SerialNumber)
	now := r.clock.Now()

	code := strings.TrimSpace(req.AssetCode)
	if code == "" {
		if serial == "" {
			return nil, fmt.Errorf("%w: asset_code or serial_number is required", domain.ErrInvalidInput)
		}
		code = GenerateAssetCode(req.Ownership, serial, now)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		label := strings.TrimSpace(req.Category)
		if serial != "" {
			name = label + " - " + serial
		} else {
			name = label + " - " + code
		}
	}

	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = DefaultLocation
	}

	lifespan := req.ExpectedLifespanMonths
	if lifespan < 0 {
		return nil, fmt.Errorf("%w: expected lifespan must not be negative", domain.ErrInvalidInput)
	}
	if lifespan == 0 {
		lifespan = domain.DefaultLifespanMonths
	}

	purchase := req.PurchaseDate
	if purchase == nil {
		purchase = &now
	}

	return &domain.Asset{
		ID:                     uuid.NewString(),
		AssetCode:              code,
		Name:                   name,
		Category:               string(category),
		Ownership:              req.Ownership,
		Status:                 domain.InitialStatus(req.Ownership),
		Location:               location,
		Manufacturer:           strings.TrimSpace(req.Manufacturer),
		SerialNumber:           serial,
		Vendor:                 req.Vendor,
		RentalRate:             req.RentalRate,
		PurchaseDate:           purchase,
		ExpectedLifespanMonths: lifespan,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// GenerateAssetCode 生成资产编码：HOSP_/RENTAL_ + 序列号后 6 位 + 日期
func GenerateAssetCode(o domain.Ownership, serial string, at time.Time) string {
	prefix := "HOSP"
	if o == domain.OwnershipRental {
		prefix = "RENTAL"
	}
	if len(serial) > 6 {
		serial = serial[len(serial)-6:]
	}
	return fmt.Sprintf("%s_%s_%s", prefix, serial, at.Format("20060102"))
}

// Transition 状态迁移原语，不修改位置与最近使用时间
// - in-use 只能由会话开启进入（手动开始或 RFID 进入）
// - 存在 active 会话时不能离开 in-use，也不能报废
func (r *registry) Transition(ctx context.Context, assetCode string, to domain.AssetStatus) (*domain.Asset, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, to)
	}
	if to == domain.StatusInUse {
		return nil, fmt.Errorf("%w: in-use is entered by opening a usage session", domain.ErrIllegalTransition)
	}
	return r.mutate(ctx, assetCode, func(ctx context.Context, tx repository.Tx, a *domain.Asset) error {
		if !domain.CanTransition(a.Status, to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, a.Status, to)
		}
		if a.Status == domain.StatusInUse || to == domain.StatusRetired {
			return r.ensureNoActiveSession(ctx, tx, a)
		}
		return nil
	}, to)
}

// Associate 关联租赁设备：unassociated -> available
func (r *registry) Associate(ctx context.Context, assetCode string) (*domain.Asset, error) {
	return r.mutate(ctx, assetCode, func(_ context.Context, _ repository.Tx, a *domain.Asset) error {
		if a.Status != domain.StatusUnassociated {
			return fmt.Errorf("%w: only unassociated assets can be associated, got %s", domain.ErrIllegalTransition, a.Status)
		}
		return nil
	}, domain.StatusAvailable)
}

// Retire 报废（软删除），存在使用中的会话时拒绝
func (r *registry) Retire(ctx context.Context, assetCode string) (*domain.Asset, error) {
	return r.mutate(ctx, assetCode, func(ctx context.Context, tx repository.Tx, a *domain.Asset) error {
		if a.Status == domain.StatusRetired {
			return fmt.Errorf("%w: asset already retired", domain.ErrIllegalTransition)
		}
		return r.ensureNoActiveSession(ctx, tx, a)
	}, domain.StatusRetired)
}

func (r *registry) ensureNoActiveSession(ctx context.Context, tx repository.Tx, a *domain.Asset) error {
	active, err := tx.Sessions().GetActiveSession(ctx, a.ID)
	if err != nil {
		return err
	}
	if active != nil {
		return domain.ErrHasActiveSession
	}
	return nil
}

// mutate 在资产锁内校验后写入目标状态
func (r *registry) mutate(ctx context.Context, assetCode string, check func(context.Context, repository.Tx, *domain.Asset) error, to domain.AssetStatus) (*domain.Asset, error) {
	var updated *domain.Asset
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := repository.LockAssetByCode(ctx, tx, assetCode)
		if err != nil {
			return err
		}
		if err := check(ctx, tx, a); err != nil {
			return err
		}
		from := a.Status
		a.Status = to
		a.UpdatedAt = r.clock.Now()
		if err := tx.Assets().UpdateAsset(ctx, a); err != nil {
			return err
		}
		r.logger.Info("Asset status changed",
			zap.String("asset_code", a.AssetCode),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.notify(ctx, updated)
	return updated, nil
}

// Delete 物理删除资产及其已完成会话与告警
func (r *registry) Delete(ctx context.Context, assetCode string) error {
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := repository.LockAssetByCode(ctx, tx, assetCode)
		if err != nil {
			return err
		}
		if err := r.ensureNoActiveSession(ctx, tx, a); err != nil {
			return err
		}
		sessions, err := tx.Sessions().DeleteSessionsByAsset(ctx, a.ID)
		if err != nil {
			return err
		}
		alerts, err := tx.Alerts().DeleteAlertsByAsset(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := tx.Assets().DeleteAsset(ctx, a.ID); err != nil {
			return err
		}
		r.logger.Info("Asset deleted",
			zap.String("asset_code", a.AssetCode),
			zap.Int("sessions", sessions),
			zap.Int("alerts", alerts),
		)
		return nil
	})
	if err != nil {
		return err
	}
	for _, o := range r.observers {
		o.AssetRemoved(ctx, assetCode)
	}
	return nil
}

func (r *registry) Get(ctx context.Context, assetCode string) (*domain.Asset, error) {
	return r.store.Assets().GetAssetByCode(ctx, assetCode)
}

func (r *registry) List(ctx context.Context, filter domain.AssetFilter) ([]*domain.Asset, error) {
	for i, c := range filter.Categories {
		filter.Categories[i] = string(atlas.NormalizeCategory(c))
	}
	return r.store.Assets().ListAssets(ctx, filter)
}

// Scan 扫码查询资产及其分类策略
func (r *registry) Scan(ctx context.Context, assetCode string) (*ScanResult, error) {
	a, err := r.Get(ctx, assetCode)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Asset: a, Policy: r.atlas.Policy(a.Category)}, nil
}

// Label 标签二维码内容，图像由外部生成
func (r *registry) Label(ctx context.Context, assetCode string) (string, error) {
	a, err := r.Get(ctx, assetCode)
	if err != nil {
		return "", err
	}
	return LabelPayload(a.AssetCode), nil
}

// LabelPayload 二维码内容格式
func LabelPayload(assetCode string) string {
	return "asset:" + assetCode
}

func (r *registry) notify(ctx context.Context, a *domain.Asset) {
	for _, o := range r.observers {
		o.AssetChanged(ctx, a)
	}
}
