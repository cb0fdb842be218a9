package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"wisefido-asset/internal/domain"
)

// MemoryStore 数据库未就绪时的内存存储
// - 返回值均为副本
// - 资产锁为按资产的互斥锁，事务结束时释放
// - 事务内写入记录撤销日志，fn 返回错误时逆序回滚
// - 无隔离：未提交的写入对其他读者可见
type MemoryStore struct {
	mu sync.RWMutex

	assets   map[string]domain.Asset        // id -> asset
	codes    map[string]string              // asset_code -> id
	sessions map[string]domain.UsageSession // id -> session
	alerts   map[string]domain.Alert        // id -> alert

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // asset id -> lock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:   map[string]domain.Asset{},
		codes:    map[string]string{},
		sessions: map[string]domain.UsageSession{},
		alerts:   map[string]domain.Alert{},
		locks:    map[string]*sync.Mutex{},
	}
}

func (s *MemoryStore) Assets() AssetsRepository     { return memoryAssets{s: s} }
func (s *MemoryStore) Sessions() SessionsRepository { return memorySessions{s: s} }
func (s *MemoryStore) Alerts() AlertsRepository     { return memoryAlerts{s: s} }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{store: s, held: map[string]*sync.Mutex{}}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) assetLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

type memoryTx struct {
	store *MemoryStore
	held  map[string]*sync.Mutex
	undo  []func()
}

func (t *memoryTx) Assets() AssetsRepository     { return memoryAssets{s: t.store, tx: t} }
func (t *memoryTx) Sessions() SessionsRepository { return memorySessions{s: t.store, tx: t} }
func (t *memoryTx) Alerts() AlertsRepository     { return memoryAlerts{s: t.store, tx: t} }

// remember 登记一条撤销操作，调用方持有 store.mu；事务外 t 为 nil
func (t *memoryTx) remember(undo func()) {
	if t == nil {
		return
	}
	t.undo = append(t.undo, undo)
}

func (t *memoryTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memoryTx) LockAsset(ctx context.Context, assetID string) error {
	if _, ok := t.held[assetID]; ok {
		return nil
	}
	t.store.mu.RLock()
	_, exists := t.store.assets[assetID]
	t.store.mu.RUnlock()
	if !exists {
		return domain.ErrAssetNotFound
	}

	l := t.store.assetLock(assetID)
	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.held[assetID] = l
	case <-ctx.Done():
		// 锁最终获得后立即释放
		go func() {
			<-acquired
			l.Unlock()
		}()
		return ctx.Err()
	}

	// 等锁期间资产可能已被删除
	t.store.mu.RLock()
	_, exists = t.store.assets[assetID]
	t.store.mu.RUnlock()
	if !exists {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (t *memoryTx) release() {
	for id, l := range t.held {
		l.Unlock()
		delete(t.held, id)
	}
}

// ---- assets ----

type memoryAssets struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r memoryAssets) CreateAsset(_ context.Context, a *domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.codes[a.AssetCode]; dup {
		return domain.ErrDuplicateIdentifier
	}
	if _, dup := r.s.assets[a.ID]; dup {
		return domain.ErrDuplicateIdentifier
	}
	r.tx.remember(r.s.assetUndo(a.ID))
	r.s.assets[a.ID] = cloneAsset(*a)
	r.s.codes[a.AssetCode] = a.ID
	return nil
}

func (r memoryAssets) GetAsset(_ context.Context, id string) (*domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	out := cloneAsset(a)
	return &out, nil
}

func (r memoryAssets) GetAssetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	r.s.mu.RLock()
	id, ok := r.s.codes[code]
	r.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return r.GetAsset(ctx, id)
}

func (r memoryAssets) ListAssets(_ context.Context, f domain.AssetFilter) ([]*domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Asset{}
	for _, a := range r.s.assets {
		if !matchAsset(a, f) {
			continue
		}
		c := cloneAsset(a)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetCode < out[j].AssetCode })
	return out, nil
}

func matchAsset(a domain.Asset, f domain.AssetFilter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, a.Category) {
		return false
	}
	if f.Ownership != "" && a.Ownership != f.Ownership {
		return false
	}
	if f.Location != "" && !strings.EqualFold(a.Location, f.Location) {
		return false
	}
	if f.Search != "" {
		kw := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.Name), kw) && !strings.Contains(strings.ToLower(a.AssetCode), kw) {
			return false
		}
	}
	return true
}

func (r memoryAssets) UpdateAsset(_ context.Context, a *domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.assets[a.ID]
	if !ok {
		return domain.ErrAssetNotFound
	}
	if old.AssetCode != a.AssetCode {
		if _, dup := r.s.codes[a.AssetCode]; dup {
			return domain.ErrDuplicateIdentifier
		}
	}
	r.tx.remember(r.s.assetUndo(a.ID))
	if old.AssetCode != a.AssetCode {
		delete(r.s.codes, old.AssetCode)
		r.s.codes[a.AssetCode] = a.ID
	}
	r.s.assets[a.ID] = cloneAsset(*a)
	return nil
}

func (r memoryAssets) DeleteAsset(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return domain.ErrAssetNotFound
	}
	r.tx.remember(r.s.assetUndo(id))
	delete(r.s.assets, id)
	delete(r.s.codes, a.AssetCode)
	return nil
}

// ---- sessions ----

type memorySessions struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r memorySessions) CreateSession(_ context.Context, sess *domain.UsageSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.assets[sess.AssetID]; !ok {
		return domain.ErrAssetNotFound
	}
	if sess.Status == domain.SessionActive {
		for _, existing := range r.s.sessions {
			if existing.AssetID == sess.AssetID && existing.Status == domain.SessionActive {
				return domain.ErrAssetUnavailable
			}
		}
	}
	r.tx.remember(r.s.sessionUndo(sess.ID))
	r.s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (r memorySessions) GetSession(_ context.Context, id string) (*domain.UsageSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := cloneSession(sess)
	return &out, nil
}

func (r memorySessions) GetActiveSession(_ context.Context, assetID string) (*domain.UsageSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sess := range r.s.sessions {
		if sess.AssetID == assetID && sess.Status == domain.SessionActive {
			out := cloneSession(sess)
			return &out, nil
		}
	}
	return nil, nil
}

func (r memorySessions) UpdateSession(_ context.Context, sess *domain.UsageSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[sess.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	r.tx.remember(r.s.sessionUndo(sess.ID))
	r.s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (r memorySessions) ListSessions(_ context.Context, f domain.SessionFilter) ([]*domain.UsageSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.UsageSession{}
	for _, sess := range r.s.sessions {
		if f.AssetID != "" && sess.AssetID != f.AssetID {
			continue
		}
		if f.Status != "" && sess.Status != f.Status {
			continue
		}
		c := cloneSession(sess)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return truncate(out, f.Limit), nil
}

func (r memorySessions) DeleteSessionsByAsset(_ context.Context, assetID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, sess := range r.s.sessions {
		if sess.AssetID == assetID {
			r.tx.remember(r.s.sessionUndo(id))
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// ---- alerts ----

type memoryAlerts struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r memoryAlerts) CreateAlert(_ context.Context, a *domain.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.assets[a.AssetID]; !ok {
		return domain.ErrAssetNotFound
	}
	r.tx.remember(r.s.alertUndo(a.ID))
	r.s.alerts[a.ID] = cloneAlert(*a)
	return nil
}

func (r memoryAlerts) GetAlert(_ context.Context, id string) (*domain.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	out := cloneAlert(a)
	return &out, nil
}

func (r memoryAlerts) HasOpenAlert(_ context.Context, assetID string, alertType domain.AlertType) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.alerts {
		if a.AssetID == assetID && a.Type == alertType && !a.IsResolved {
			return true, nil
		}
	}
	return false, nil
}

func (r memoryAlerts) ListAlerts(_ context.Context, f domain.AlertFilter) ([]*domain.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Alert{}
	for _, a := range r.s.alerts {
		if f.AssetID != "" && a.AssetID != f.AssetID {
			continue
		}
		if f.Resolved != nil && a.IsResolved != *f.Resolved {
			continue
		}
		if len(f.Types) > 0 && !slices.Contains(f.Types, a.Type) {
			continue
		}
		c := cloneAlert(a)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return truncate(out, f.Limit), nil
}

func (r memoryAlerts) ResolveAlert(_ context.Context, id string, resolvedBy *string, at time.Time) (*domain.Alert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	if !a.IsResolved {
		a.IsResolved = true
		a.ResolvedAt = &at
		a.ResolvedBy = copyString(resolvedBy)
		r.tx.remember(r.s.alertUndo(id))
		r.s.alerts[id] = a
	}
	out := cloneAlert(a)
	return &out, nil
}

func (r memoryAlerts) DeleteAlertsByAsset(_ context.Context, assetID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, a := range r.s.alerts {
		if a.AssetID == assetID {
			r.tx.remember(r.s.alertUndo(id))
			delete(r.s.alerts, id)
			n++
		}
	}
	return n, nil
}

// ---- helpers ----

// 以下 *Undo 在 s.mu 持有时调用，返回恢复写入前状态的闭包

func (s *MemoryStore) assetUndo(id string) func() {
	old, had := s.assets[id]
	return func() {
		if cur, ok := s.assets[id]; ok {
			delete(s.codes, cur.AssetCode)
			delete(s.assets, id)
		}
		if had {
			s.assets[id] = old
			s.codes[old.AssetCode] = id
		}
	}
}

func (s *MemoryStore) sessionUndo(id string) func() {
	old, had := s.sessions[id]
	return func() {
		if had {
			s.sessions[id] = old
			return
		}
		delete(s.sessions, id)
	}
}

func (s *MemoryStore) alertUndo(id string) func() {
	old, had := s.alerts[id]
	return func() {
		if had {
			s.alerts[id] = old
			return
		}
		delete(s.alerts, id)
	}
}

func cloneAsset(a domain.Asset) domain.Asset {
	a.Vendor = copyString(a.Vendor)
	if a.RentalRate != nil {
		v := *a.RentalRate
		a.RentalRate = &v
	}
	a.PurchaseDate = copyTime(a.PurchaseDate)
	a.LastUsage = copyTime(a.LastUsage)
	return a
}

func cloneSession(s domain.UsageSession) domain.UsageSession {
	s.OperatorID = copyString(s.OperatorID)
	s.SubjectRef = copyString(s.SubjectRef)
	s.EndTime = copyTime(s.EndTime)
	if s.ExpectedDurationHours != nil {
		v := *s.ExpectedDurationHours
		s.ExpectedDurationHours = &v
	}
	return s
}

func cloneAlert(a domain.Alert) domain.Alert {
	a.ResolvedAt = copyTime(a.ResolvedAt)
	a.ResolvedBy = copyString(a.ResolvedBy)
	return a
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func truncate[T any](list []T, limit int) []T {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
