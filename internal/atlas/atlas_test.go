package atlas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_KnownCategories(t *testing.T) {
	a := Default()
	assert.Len(t, a.Entries(), 12)

	e, ok := a.Lookup("crash_cart")
	require.True(t, ok)
	assert.Equal(t, 0.5, e.MaxContinuousUseHours)
	assert.Equal(t, 7, e.MaintenanceIntervalDays)
	assert.True(t, e.CriticalDevice)
	assert.True(t, e.TrainingRequired)

	e, ok = a.Lookup("Portable Ventilator")
	require.True(t, ok, "lookup normalizes free text")
	assert.Equal(t, PortableVentilator, e.Category)
}

func TestPolicy_UnknownCategoryUsesDefaults(t *testing.T) {
	p := Default().Policy("Bariatric Bed")
	assert.False(t, p.Known)
	assert.Equal(t, Category("bariatric_bed"), p.Category)
	assert.Equal(t, DefaultMaxContinuousUseHours, p.MaxContinuousUseHours)
	assert.Equal(t, DefaultMaintenanceIntervalDays, p.MaintenanceIntervalDays)
	assert.False(t, p.TrainingRequired)
	assert.False(t, p.CriticalDevice)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, Category("iv_pole_wheeled"), NormalizeCategory("  IV Pole   Wheeled "))
	assert.Equal(t, Category(""), NormalizeCategory("   "))
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]Entry{{Category: "a", MaxContinuousUseHours: 1, MaintenanceIntervalDays: 1}, {Category: "A", MaxContinuousUseHours: 1, MaintenanceIntervalDays: 1}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]Entry{{Category: "a", MaxContinuousUseHours: 0, MaintenanceIntervalDays: 1}})
	assert.ErrorContains(t, err, "max_continuous_use_hours")

	_, err = New([]Entry{{Category: " ", MaxContinuousUseHours: 1, MaintenanceIntervalDays: 1}})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	a, err := LoadFile(filepath.Join("testdata", "atlas.yaml"))
	require.NoError(t, err)

	e, ok := a.Lookup("wheelchair")
	require.True(t, ok)
	assert.Equal(t, 3.0, e.MaxContinuousUseHours)

	e, ok = a.Lookup("bariatric_bed")
	require.True(t, ok)
	assert.Equal(t, 72.0, e.MaxContinuousUseHours)

	_, ok = a.Lookup("crash_cart")
	assert.False(t, ok, "file replaces the built-in table")
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories: []\n"), 0o600))
	_, err = LoadFile(empty)
	assert.ErrorContains(t, err, "no categories")
}
