// Package repository 资产、使用会话与告警的持久化。
// 同一资产的“检查-修改”必须在 WithinTx 中先 LockAsset 再读写。
package repository

import (
	"context"
	"time"

	"wisefido-asset/internal/domain"
)

// AssetsRepository 资产Repository接口
type AssetsRepository interface {
	// CreateAsset 资产编码已存在时返回 domain.ErrDuplicateIdentifier
	CreateAsset(ctx context.Context, a *domain.Asset) error
	GetAsset(ctx context.Context, id string) (*domain.Asset, error)
	GetAssetByCode(ctx context.Context, code string) (*domain.Asset, error)
	ListAssets(ctx context.Context, filter domain.AssetFilter) ([]*domain.Asset, error)
	UpdateAsset(ctx context.Context, a *domain.Asset) error
	DeleteAsset(ctx context.Context, id string) error
}

// SessionsRepository 使用会话Repository接口
type SessionsRepository interface {
	// CreateSession 资产已有 active 会话时返回 domain.ErrAssetUnavailable
	CreateSession(ctx context.Context, s *domain.UsageSession) error
	GetSession(ctx context.Context, id string) (*domain.UsageSession, error)
	// GetActiveSession 无 active 会话时返回 nil, nil
	GetActiveSession(ctx context.Context, assetID string) (*domain.UsageSession, error)
	UpdateSession(ctx context.Context, s *domain.UsageSession) error
	// ListSessions 按开始时间倒序
	ListSessions(ctx context.Context, filter domain.SessionFilter) ([]*domain.UsageSession, error)
	DeleteSessionsByAsset(ctx context.Context, assetID string) (int, error)
}

// AlertsRepository 告警Repository接口
type AlertsRepository interface {
	CreateAlert(ctx context.Context, a *domain.Alert) error
	GetAlert(ctx context.Context, id string) (*domain.Alert, error)
	// HasOpenAlert 资产是否存在同类型未解决告警
	HasOpenAlert(ctx context.Context, assetID string, alertType domain.AlertType) (bool, error)
	// ListAlerts 按创建时间倒序
	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error)
	// ResolveAlert 已解决的告警原样返回
	ResolveAlert(ctx context.Context, id string, resolvedBy *string, at time.Time) (*domain.Alert, error)
	DeleteAlertsByAsset(ctx context.Context, assetID string) (int, error)
}

// Repositories 三类Repository的访问入口
type Repositories interface {
	Assets() AssetsRepository
	Sessions() SessionsRepository
	Alerts() AlertsRepository
}

// Tx 事务内视图
type Tx interface {
	Repositories
	// LockAsset 持有资产行锁直到事务结束；资产不存在时返回 domain.ErrAssetNotFound
	LockAsset(ctx context.Context, assetID string) error
}

// Store 存储入口
type Store interface {
	Repositories
	// WithinTx fn 返回错误时回滚
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

const defaultListLimit = 500

// LockAssetByCode 按编码查找资产并加锁，返回加锁后重新读取的资产
func LockAssetByCode(ctx context.Context, tx Tx, assetCode string) (*domain.Asset, error) {
	a, err := tx.Assets().GetAssetByCode(ctx, assetCode)
	if err != nil {
		return nil, err
	}
	if err := tx.LockAsset(ctx, a.ID); err != nil {
		return nil, err
	}
	return tx.Assets().GetAsset(ctx, a.ID)
}
