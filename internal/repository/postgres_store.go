package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
)

// querier *sql.DB 与 *sql.Tx 的公共部分
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore PostgreSQL 存储实现
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Assets() AssetsRepository     { return &pgAssets{q: s.db} }
func (s *PostgresStore) Sessions() SessionsRepository { return &pgSessions{q: s.db} }
func (s *PostgresStore) Alerts() AlertsRepository     { return &pgAlerts{q: s.db} }

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(ctx, &pgTx{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Assets() AssetsRepository     { return &pgAssets{q: t.tx} }
func (t *pgTx) Sessions() SessionsRepository { return &pgSessions{q: t.tx} }
func (t *pgTx) Alerts() AlertsRepository     { return &pgAlerts{q: t.tx} }

func (t *pgTx) LockAsset(ctx context.Context, assetID string) error {
	if !validUUID(assetID) {
		return domain.ErrAssetNotFound
	}
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE id = $1 FOR UPDATE`, assetID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAssetNotFound
	}
	if err != nil {
		return fmt.Errorf("lock asset %s: %w", assetID, err)
	}
	return nil
}

// ---- pq helpers ----

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
