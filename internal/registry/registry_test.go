package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/clock"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/repository"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type observerStub struct {
	mu      sync.Mutex
	changed []domain.AssetStatus
	removed []string
}

func (o *observerStub) AssetChanged(_ context.Context, a *domain.Asset) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changed = append(o.changed, a.Status)
}

func (o *observerStub) AssetRemoved(_ context.Context, code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed = append(o.removed, code)
}

func setupRegistry(t *testing.T) (Registry, *repository.MemoryStore, *observerStub) {
	t.Helper()
	store := repository.NewMemoryStore()
	obs := &observerStub{}
	return New(store, atlas.Default(), clock.Fake(t0), zap.NewNop(), obs), store, obs
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestRegister_HospitalDefaults(t *testing.T) {
	reg, _, obs := setupRegistry(t)

	a, err := reg.Register(context.Background(), RegisterRequest{
		SerialNumber: "SN-00012345",
		Category:     "Wheelchair",
		Ownership:    domain.OwnershipHospital,
	})
	require.NoError(t, err)
	assert.Equal(t, "HOSP_012345_20250314", a.AssetCode)
	assert.Equal(t, "Wheelchair - SN-00012345", a.Name)
	assert.Equal(t, "wheelchair", a.Category)
	assert.Equal(t, domain.StatusAvailable, a.Status)
	assert.Equal(t, DefaultLocation, a.Location)
	assert.Equal(t, domain.DefaultLifespanMonths, a.ExpectedLifespanMonths)
	assert.Equal(t, t0, *a.PurchaseDate)
	assert.Nil(t, a.LastUsage)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, []domain.AssetStatus{domain.StatusAvailable}, obs.changed)
}

func TestRegister_RentalStartsUnassociated(t *testing.T) {
	reg, _, _ := setupRegistry(t)

	a, err := reg.Register(context.Background(), RegisterRequest{
		SerialNumber: "XR77",
		Category:     "portable xray",
		Ownership:    domain.OwnershipRental,
		Vendor:       strPtr("MedLease"),
		RentalRate:   floatPtr(120),
	})
	require.NoError(t, err)
	assert.Equal(t, "RENTAL_XR77_20250314", a.AssetCode)
	assert.Equal(t, domain.StatusUnassociated, a.Status)
	assert.Equal(t, string(atlas.PortableXRay), a.Category)
	assert.Equal(t, "MedLease", *a.Vendor)
}

func TestRegister_Validation(t *testing.T) {
	reg, store, _ := setupRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{"unknown ownership", RegisterRequest{AssetCode: "A1", Category: "wheelchair", Ownership: "leased"}, domain.ErrInvalidOwnershipFields},
		{"hospital with vendor", RegisterRequest{AssetCode: "A2", Category: "wheelchair", Ownership: domain.OwnershipHospital, Vendor: strPtr("X")}, domain.ErrInvalidOwnershipFields},
		{"hospital with rate", RegisterRequest{AssetCode: "A3", Category: "wheelchair", Ownership: domain.OwnershipHospital, RentalRate: floatPtr(1)}, domain.ErrInvalidOwnershipFields},
		{"negative rate", RegisterRequest{AssetCode: "A4", Category: "wheelchair", Ownership: domain.OwnershipRental, RentalRate: floatPtr(-1)}, domain.ErrInvalidOwnershipFields},
		{"missing category", RegisterRequest{AssetCode: "A5", Ownership: domain.OwnershipHospital}, domain.ErrInvalidInput},
		{"no code or serial", RegisterRequest{Category: "wheelchair", Ownership: domain.OwnershipHospital}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Register(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	list, err := store.Assets().ListAssets(ctx, domain.AssetFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegister_DuplicateCodePersistsNothing(t *testing.T) {
	reg, store, _ := setupRegistry(t)
	ctx := context.Background()

	first, err := reg.Register(ctx, RegisterRequest{AssetCode: "ECG-01", Category: "mobile_ecg", Ownership: domain.OwnershipHospital})
	require.NoError(t, err)

	_, err = reg.Register(ctx, RegisterRequest{AssetCode: "ECG-01", Name: "other", Category: "crash_cart", Ownership: domain.OwnershipHospital})
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)

	list, err := store.Assets().ListAssets(ctx, domain.AssetFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "mobile_ecg", list[0].Category)
}

func TestAssociateAndTransition(t *testing.T) {
	reg, _, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, RegisterRequest{AssetCode: "R1", Category: "portable_ultrasound", Ownership: domain.OwnershipRental})
	require.NoError(t, err)

	_, err = reg.Transition(ctx, "R1", domain.StatusInUse)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	a, err := reg.Associate(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, a.Status)

	_, err = reg.Associate(ctx, "R1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	a, err = reg.Transition(ctx, "R1", domain.StatusMaintenance)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMaintenance, a.Status)
	assert.Equal(t, DefaultLocation, a.Location)

	_, err = reg.Transition(ctx, "R1", domain.StatusInUse)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	_, err = reg.Transition(ctx, "R1", "broken")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = reg.Transition(ctx, "NOPE", domain.StatusAvailable)
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
}

func TestTransition_GuardsInUse(t *testing.T) {
	reg, store, _ := setupRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, RegisterRequest{AssetCode: "WC001", Category: "wheelchair", Ownership: domain.OwnershipHospital})
	require.NoError(t, err)

	// 没有会话不能直接置为 in-use
	_, err = reg.Transition(ctx, "WC001", domain.StatusInUse)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	got, err := reg.Get(ctx, "WC001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, got.Status)

	active := &domain.UsageSession{
		ID: "s-1", AssetID: a.ID, StartTime: t0, Status: domain.SessionActive, Source: domain.SourceManual,
	}
	require.NoError(t, store.Sessions().CreateSession(ctx, active))
	a.Status = domain.StatusInUse
	require.NoError(t, store.Assets().UpdateAsset(ctx, a))

	for _, to := range []domain.AssetStatus{domain.StatusAvailable, domain.StatusRetired} {
		_, err = reg.Transition(ctx, "WC001", to)
		assert.ErrorIs(t, err, domain.ErrHasActiveSession, to)
	}
	got, err = reg.Get(ctx, "WC001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInUse, got.Status)

	active.Close(t0.Add(time.Hour))
	require.NoError(t, store.Sessions().UpdateSession(ctx, active))

	got, err = reg.Transition(ctx, "WC001", domain.StatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, got.Status)
}

func TestRetire(t *testing.T) {
	reg, store, _ := setupRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, RegisterRequest{AssetCode: "V1", Category: "portable_ventilator", Ownership: domain.OwnershipHospital})
	require.NoError(t, err)

	active := &domain.UsageSession{
		ID: "s-1", AssetID: a.ID, StartTime: t0, Status: domain.SessionActive, Source: domain.SourceManual,
	}
	require.NoError(t, store.Sessions().CreateSession(ctx, active))

	_, err = reg.Retire(ctx, "V1")
	assert.ErrorIs(t, err, domain.ErrHasActiveSession)
	_, err = reg.Transition(ctx, "V1", domain.StatusRetired)
	assert.ErrorIs(t, err, domain.ErrHasActiveSession)

	active.Close(t0.Add(time.Hour))
	require.NoError(t, store.Sessions().UpdateSession(ctx, active))

	retired, err := reg.Retire(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetired, retired.Status)

	_, err = reg.Retire(ctx, "V1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	_, err = reg.Transition(ctx, "V1", domain.StatusAvailable)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	// 报废资产保留在列表中
	list, err := reg.List(ctx, domain.AssetFilter{Statuses: []domain.AssetStatus{domain.StatusRetired}})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDelete(t *testing.T) {
	reg, store, obs := setupRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, RegisterRequest{AssetCode: "IV1", Category: "iv_pole_wheeled", Ownership: domain.OwnershipHospital})
	require.NoError(t, err)

	s := &domain.UsageSession{ID: "s-1", AssetID: a.ID, StartTime: t0, Status: domain.SessionActive, Source: domain.SourceRFID}
	require.NoError(t, store.Sessions().CreateSession(ctx, s))
	require.NoError(t, store.Alerts().CreateAlert(ctx, &domain.Alert{
		ID: "al-1", AssetID: a.ID, Type: domain.AlertInactivity, Severity: domain.SeverityMedium, Message: "idle", CreatedAt: t0,
	}))

	assert.ErrorIs(t, reg.Delete(ctx, "IV1"), domain.ErrHasActiveSession)

	s.Close(t0.Add(time.Hour))
	require.NoError(t, store.Sessions().UpdateSession(ctx, s))
	require.NoError(t, reg.Delete(ctx, "IV1"))

	_, err = reg.Get(ctx, "IV1")
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	sessions, err := store.Sessions().ListSessions(ctx, domain.SessionFilter{AssetID: a.ID})
	require.NoError(t, err)
	assert.Empty(t, sessions)
	alerts, err := store.Alerts().ListAlerts(ctx, domain.AlertFilter{AssetID: a.ID})
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, []string{"IV1"}, obs.removed)

	assert.ErrorIs(t, reg.Delete(ctx, "IV1"), domain.ErrAssetNotFound)
}

func TestListNormalizesCategoryFilter(t *testing.T) {
	reg, _, _ := setupRegistry(t)
	ctx := context.Background()

	for _, req := range []RegisterRequest{
		{AssetCode: "A", Category: "crash_cart", Ownership: domain.OwnershipHospital},
		{AssetCode: "B", Category: "Crash Cart", Ownership: domain.OwnershipHospital},
		{AssetCode: "C", Category: "wheelchair", Ownership: domain.OwnershipHospital},
	} {
		_, err := reg.Register(ctx, req)
		require.NoError(t, err)
	}

	list, err := reg.List(ctx, domain.AssetFilter{Categories: []string{"CRASH CART"}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].AssetCode)
	assert.Equal(t, "B", list[1].AssetCode)
}

func TestScanAndLabel(t *testing.T) {
	reg, _, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, RegisterRequest{AssetCode: "CC1", Category: "crash_cart", Ownership: domain.OwnershipHospital})
	require.NoError(t, err)
	_, err = reg.Register(ctx, RegisterRequest{AssetCode: "BB1", Category: "bariatric bed", Ownership: domain.OwnershipHospital})
	require.NoError(t, err)

	res, err := reg.Scan(ctx, "CC1")
	require.NoError(t, err)
	assert.True(t, res.Policy.Known)
	assert.True(t, res.Policy.CriticalDevice)
	assert.Equal(t, 0.5, res.Policy.MaxContinuousUseHours)

	res, err = reg.Scan(ctx, "BB1")
	require.NoError(t, err)
	assert.False(t, res.Policy.Known)
	assert.Equal(t, atlas.DefaultMaxContinuousUseHours, res.Policy.MaxContinuousUseHours)
	assert.Equal(t, atlas.DefaultMaintenanceIntervalDays, res.Policy.MaintenanceIntervalDays)

	label, err := reg.Label(ctx, "CC1")
	require.NoError(t, err)
	assert.Equal(t, "asset:CC1", label)

	_, err = reg.Scan(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)
}
