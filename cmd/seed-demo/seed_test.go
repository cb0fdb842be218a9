package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-asset/internal/atlas"
	"wisefido-asset/internal/clock"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/registry"
	"wisefido-asset/internal/repository"
)

func TestSeedDemoAssets_Idempotent(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(repository.NewMemoryStore(), atlas.Default(), clock.Fake(time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)), zap.NewNop())

	created, skipped, err := SeedDemoAssets(ctx, reg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, len(demoAssets), created)
	assert.Zero(t, skipped)

	xray, err := reg.Get(ctx, "RENTAL_520331_20250402")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, xray.Status)
	assert.Equal(t, "portable_xray", xray.Category)

	us, err := reg.Get(ctx, "RENTAL_088123_20250402")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnassociated, us.Status)

	cart, err := reg.Get(ctx, "CC001")
	require.NoError(t, err)
	assert.Equal(t, "ER", cart.Location)

	created, skipped, err = SeedDemoAssets(ctx, reg, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, len(demoAssets), skipped)
}
