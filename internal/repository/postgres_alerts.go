package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"wisefido-asset/internal/domain"
)

const alertColumns = `id::text, asset_id::text, alert_type, message, severity,
	is_resolved, created_at, resolved_at, resolved_by`

type pgAlerts struct {
	q querier
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var (
		a          domain.Alert
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)
	if err := row.Scan(
		&a.ID, &a.AssetID, &a.Type, &a.Message, &a.Severity,
		&a.IsResolved, &a.CreatedAt, &resolvedAt, &resolvedBy,
	); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.ResolvedAt = timePtr(resolvedAt)
	a.ResolvedBy = stringPtr(resolvedBy)
	return &a, nil
}

func (r *pgAlerts) CreateAlert(ctx context.Context, a *domain.Alert) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO alerts (id, asset_id, alert_type, message, severity, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.AssetID, string(a.Type), a.Message, string(a.Severity), a.IsResolved, a.CreatedAt,
	)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return domain.ErrAssetNotFound
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *pgAlerts) GetAlert(ctx context.Context, id string) (*domain.Alert, error) {
	if !validUUID(id) {
		return nil, domain.ErrAlertNotFound
	}
	a, err := scanAlert(r.q.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert %s: %w", id, err)
	}
	return a, nil
}

func (r *pgAlerts) HasOpenAlert(ctx context.Context, assetID string, alertType domain.AlertType) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts WHERE asset_id = $1 AND alert_type = $2 AND is_resolved = FALSE
		)`, assetID, string(alertType)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open alert: %w", err)
	}
	return exists, nil
}

func (r *pgAlerts) ListAlerts(ctx context.Context, f domain.AlertFilter) ([]*domain.Alert, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1
	if f.AssetID != "" {
		where = append(where, fmt.Sprintf("asset_id = $%d", argN))
		args = append(args, f.AssetID)
		argN++
	}
	if f.Resolved != nil {
		where = append(where, fmt.Sprintf("is_resolved = $%d", argN))
		args = append(args, *f.Resolved)
		argN++
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		where = append(where, fmt.Sprintf("alert_type = ANY($%d)", argN))
		args = append(args, pq.Array(types))
		argN++
	}
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argN)
	args = append(args, listLimit(f.Limit))

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	out := []*domain.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgAlerts) ResolveAlert(ctx context.Context, id string, resolvedBy *string, at time.Time) (*domain.Alert, error) {
	if !validUUID(id) {
		return nil, domain.ErrAlertNotFound
	}
	a, err := scanAlert(r.q.QueryRowContext(ctx, `
		UPDATE alerts SET is_resolved = TRUE, resolved_at = $2, resolved_by = $3
		WHERE id = $1 AND is_resolved = FALSE
		RETURNING `+alertColumns, id, at, nullableString(resolvedBy)))
	if errors.Is(err, sql.ErrNoRows) {
		// 已解决或不存在
		return r.GetAlert(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve alert %s: %w", id, err)
	}
	return a, nil
}

func (r *pgAlerts) DeleteAlertsByAsset(ctx context.Context, assetID string) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM alerts WHERE asset_id = $1`, assetID)
	if err != nil {
		return 0, fmt.Errorf("delete alerts for asset %s: %w", assetID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
