//go:build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-asset/common/config"
	"wisefido-asset/common/database"
	"wisefido-asset/internal/domain"
)

func getTestDB(t *testing.T) *sql.DB {
	port, _ := strconv.Atoi(getEnv("TEST_DB_PORT", "5432"))
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "wisefido_asset_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	require.NoError(t, ApplySchema(context.Background(), db))
	return db
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestPostgresStore_Integration_ConcurrentOpen(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db, zap.NewNop())
	ctx := context.Background()

	a := newMemoryAsset("IT_" + uuid.NewString()[:8])
	require.NoError(t, store.Assets().CreateAsset(ctx, a))
	defer func() {
		_ = store.Assets().DeleteAsset(ctx, a.ID)
	}()

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
				if err := tx.LockAsset(ctx, a.ID); err != nil {
					return err
				}
				active, err := tx.Sessions().GetActiveSession(ctx, a.ID)
				if err != nil {
					return err
				}
				if active != nil {
					return domain.ErrAssetUnavailable
				}
				return tx.Sessions().CreateSession(ctx, &domain.UsageSession{
					ID: uuid.NewString(), AssetID: a.ID, StartTime: time.Now().UTC(),
					Status: domain.SessionActive, Source: domain.SourceManual,
				})
			})
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestPostgresStore_Integration_DeleteCascades(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db, zap.NewNop())
	ctx := context.Background()

	a := newMemoryAsset("IT_" + uuid.NewString()[:8])
	require.NoError(t, store.Assets().CreateAsset(ctx, a))
	require.NoError(t, store.Alerts().CreateAlert(ctx, &domain.Alert{
		ID: uuid.NewString(), AssetID: a.ID, Type: domain.AlertInactivity, Message: "m",
		Severity: domain.SeverityMedium, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, store.Assets().DeleteAsset(ctx, a.ID))
	list, err := store.Alerts().ListAlerts(ctx, domain.AlertFilter{AssetID: a.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}
