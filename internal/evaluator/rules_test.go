package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func assetIdleFor(ownership domain.Ownership, idle time.Duration) *domain.Asset {
	last := testNow.Add(-idle)
	return &domain.Asset{
		ID: "asset-1", AssetCode: "RT001", Name: "Ventilator RT001", Category: "portable_ventilator",
		Ownership: ownership, Status: domain.StatusAvailable, LastUsage: &last,
	}
}

func TestEvaluate_ConditionRules(t *testing.T) {
	e := New(Options{})

	tests := []struct {
		name      string
		ownership domain.Ownership
		idle      time.Duration
		want      []domain.AlertType
	}{
		{"rental 7 days is quiet", domain.OwnershipRental, 7*24*time.Hour + 23*time.Hour, nil},
		{"rental 8 days", domain.OwnershipRental, 8 * 24 * time.Hour, []domain.AlertType{domain.AlertRentalExpiry}},
		{"hospital 8 days is quiet", domain.OwnershipHospital, 8 * 24 * time.Hour, nil},
		{"hospital 30 days is quiet", domain.OwnershipHospital, 30*24*time.Hour + 12*time.Hour, nil},
		{"hospital 31 days", domain.OwnershipHospital, 31 * 24 * time.Hour, []domain.AlertType{domain.AlertInactivity}},
		{"rental 40 days fires both", domain.OwnershipRental, 40 * 24 * time.Hour, []domain.AlertType{domain.AlertRentalExpiry, domain.AlertInactivity}},
		{"future last usage", domain.OwnershipRental, -48 * time.Hour, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(assetIdleFor(tt.ownership, tt.idle), testNow)
			var types []domain.AlertType
			for _, c := range got {
				types = append(types, c.Type)
			}
			assert.Equal(t, tt.want, types)
		})
	}
}

func TestEvaluate_RentalEightDaysMessage(t *testing.T) {
	got := New(Options{}).Evaluate(assetIdleFor(domain.OwnershipRental, 8*24*time.Hour+time.Hour), testNow)
	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityHigh, got[0].Severity)
	assert.Equal(t, "Rental asset Ventilator RT001 has not been used for 8 days", got[0].Message)
	assert.Contains(t, got[0].Message, "8 days")
}

func TestEvaluate_InactivityMessage(t *testing.T) {
	got := New(Options{}).Evaluate(assetIdleFor(domain.OwnershipHospital, 45*24*time.Hour), testNow)
	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityMedium, got[0].Severity)
	assert.Equal(t, "Asset Ventilator RT001 has been inactive for 45 days", got[0].Message)
}

func TestEvaluate_NeverUsedAndRetired(t *testing.T) {
	e := New(Options{})
	a := &domain.Asset{Name: "x", Ownership: domain.OwnershipRental, Status: domain.StatusUnassociated}
	assert.Empty(t, e.Evaluate(a, testNow))

	retired := assetIdleFor(domain.OwnershipRental, 90*24*time.Hour)
	retired.Status = domain.StatusRetired
	assert.Empty(t, e.Evaluate(retired, testNow))
}

func closedSession(start time.Time, d time.Duration) *domain.UsageSession {
	s := &domain.UsageSession{StartTime: start, Status: domain.SessionActive}
	s.Close(start.Add(d))
	return s
}

func TestEvaluateClosedSession_Overuse(t *testing.T) {
	e := New(Options{Atlas: atlas.Default()})

	crash := &domain.Asset{Name: "Crash Cart CC001", Category: "crash_cart"}
	c := e.EvaluateClosedSession(crash, closedSession(testNow, time.Hour))
	require.NotNil(t, c)
	assert.Equal(t, domain.AlertOveruse, c.Type)
	assert.Equal(t, domain.SeverityMedium, c.Severity)
	assert.Equal(t, "Asset Crash Cart CC001 was used for 1.0 hours (max: 0.5)", c.Message)

	unknown := &domain.Asset{Name: "Bed B1", Category: "bariatric_bed"}
	c = e.EvaluateClosedSession(unknown, closedSession(testNow, 9*time.Hour))
	require.NotNil(t, c)
	assert.Equal(t, "Asset Bed B1 was used for 9.0 hours (max: 8)", c.Message)

	assert.Nil(t, e.EvaluateClosedSession(unknown, closedSession(testNow, 8*time.Hour)), "exactly at the limit is not overuse")
	assert.Nil(t, e.EvaluateClosedSession(unknown, &domain.UsageSession{StartTime: testNow, Status: domain.SessionActive}))
	assert.Nil(t, e.EvaluateClosedSession(unknown, nil))
}
