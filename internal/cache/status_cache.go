// Package cache 维护资产实时状态快照，供看板按位置查询。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/store"
)

const keyPrefix = "asset:status:"

// StatusKey 资产状态快照的缓存键
func StatusKey(assetCode string) string {
	return keyPrefix + assetCode
}

// Snapshot 资产状态快照
type Snapshot struct {
	AssetCode string             `json:"asset_code"`
	Name      string             `json:"name"`
	Category  string             `json:"category"`
	Status    domain.AssetStatus `json:"status"`
	Location  string             `json:"location"`
	LastUsage *time.Time         `json:"last_usage,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewSnapshot 由资产生成快照
func NewSnapshot(a *domain.Asset) Snapshot {
	return Snapshot{
		AssetCode: a.AssetCode,
		Name:      a.Name,
		Category:  a.Category,
		Status:    a.Status,
		Location:  a.Location,
		LastUsage: a.LastUsage,
		UpdatedAt: a.UpdatedAt,
	}
}

// StatusCache 实现 registry.Observer，在状态变更提交后刷新快照
type StatusCache struct {
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewStatusCache(kv store.KV, ttl time.Duration, logger *zap.Logger) *StatusCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusCache{kv: kv, ttl: ttl, logger: logger}
}

// Put 写入快照
func (c *StatusCache) Put(ctx context.Context, a *domain.Asset) error {
	b, err := json.Marshal(NewSnapshot(a))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.kv.Set(ctx, StatusKey(a.AssetCode), string(b), c.ttl)
}

// Get 读取快照，未命中返回 store.ErrMiss
func (c *StatusCache) Get(ctx context.Context, assetCode string) (*Snapshot, error) {
	raw, err := c.kv.Get(ctx, StatusKey(assetCode))
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", assetCode, err)
	}
	return &s, nil
}

// Prime 启动时用当前资产预热缓存
func (c *StatusCache) Prime(ctx context.Context, assets []*domain.Asset) error {
	for _, a := range assets {
		if err := c.Put(ctx, a); err != nil {
			return err
		}
	}
	c.logger.Info("Status cache primed", zap.Int("assets", len(assets)))
	return nil
}

// Locations 按位置分组的看板；报废资产不展示
func (c *StatusCache) Locations(ctx context.Context) (map[string][]Snapshot, error) {
	keys, err := c.kv.ScanKeys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, err
	}
	raws, err := c.kv.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	board := make(map[string][]Snapshot)
	for _, raw := range raws {
		var s Snapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			c.logger.Warn("Skip malformed snapshot", zap.Error(err))
			continue
		}
		if s.Status == domain.StatusRetired {
			continue
		}
		board[s.Location] = append(board[s.Location], s)
	}
	for loc := range board {
		list := board[loc]
		sort.Slice(list, func(i, j int) bool { return list[i].AssetCode < list[j].AssetCode })
	}
	return board, nil
}

func (c *StatusCache) AssetChanged(ctx context.Context, a *domain.Asset) {
	if err := c.Put(ctx, a); err != nil {
		c.logger.Warn("Failed to cache asset status",
			zap.String("asset_code", a.AssetCode),
			zap.Error(err),
		)
	}
}

func (c *StatusCache) AssetRemoved(ctx context.Context, assetCode string) {
	if err := c.kv.Del(ctx, StatusKey(assetCode)); err != nil {
		c.logger.Warn("Failed to evict asset status",
			zap.String("asset_code", assetCode),
			zap.Error(err),
		)
	}
}
