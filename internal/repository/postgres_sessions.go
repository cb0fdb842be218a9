package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wisefido-asset/internal/domain"
)

const sessionColumns = `id::text, asset_id::text, operator_id, start_time, end_time,
	expected_duration_hours, reason, department, status, notes, subject_ref, source`

type pgSessions struct {
	q querier
}

func scanSession(row rowScanner) (*domain.UsageSession, error) {
	var (
		s          domain.UsageSession
		operatorID sql.NullString
		endTime    sql.NullTime
		expected   sql.NullFloat64
		subjectRef sql.NullString
	)
	if err := row.Scan(
		&s.ID, &s.AssetID, &operatorID, &s.StartTime, &endTime,
		&expected, &s.Reason, &s.Department, &s.Status, &s.Notes, &subjectRef, &s.Source,
	); err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	s.OperatorID = stringPtr(operatorID)
	s.EndTime = timePtr(endTime)
	s.ExpectedDurationHours = floatPtr(expected)
	s.SubjectRef = stringPtr(subjectRef)
	return &s, nil
}

func (r *pgSessions) CreateSession(ctx context.Context, s *domain.UsageSession) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO usage_sessions (
			id, asset_id, operator_id, start_time, end_time, expected_duration_hours,
			reason, department, status, notes, subject_ref, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.AssetID, nullableString(s.OperatorID), s.StartTime, nullableTime(s.EndTime), nullableFloat(s.ExpectedDurationHours),
		s.Reason, s.Department, string(s.Status), s.Notes, nullableString(s.SubjectRef), string(s.Source),
	)
	if err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			return domain.ErrAssetUnavailable
		case pqForeignKeyViolation:
			return domain.ErrAssetNotFound
		}
		return fmt.Errorf("insert usage session: %w", err)
	}
	return nil
}

func (r *pgSessions) GetSession(ctx context.Context, id string) (*domain.UsageSession, error) {
	if !validUUID(id) {
		return nil, domain.ErrSessionNotFound
	}
	s, err := scanSession(r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM usage_sessions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get usage session %s: %w", id, err)
	}
	return s, nil
}

func (r *pgSessions) GetActiveSession(ctx context.Context, assetID string) (*domain.UsageSession, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM usage_sessions WHERE asset_id = $1 AND status = 'active'`, assetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session for asset %s: %w", assetID, err)
	}
	return s, nil
}

func (r *pgSessions) UpdateSession(ctx context.Context, s *domain.UsageSession) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE usage_sessions SET
			end_time = $2, status = $3, notes = $4
		WHERE id = $1`,
		s.ID, nullableTime(s.EndTime), string(s.Status), s.Notes,
	)
	if err != nil {
		return fmt.Errorf("update usage session %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *pgSessions) ListSessions(ctx context.Context, f domain.SessionFilter) ([]*domain.UsageSession, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1
	if f.AssetID != "" {
		where = append(where, fmt.Sprintf("asset_id = $%d", argN))
		args = append(args, f.AssetID)
		argN++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, string(f.Status))
		argN++
	}
	q := `SELECT ` + sessionColumns + ` FROM usage_sessions WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY start_time DESC LIMIT $%d`, argN)
	args = append(args, listLimit(f.Limit))

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list usage sessions: %w", err)
	}
	defer rows.Close()

	out := []*domain.UsageSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgSessions) DeleteSessionsByAsset(ctx context.Context, assetID string) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM usage_sessions WHERE asset_id = $1`, assetID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for asset %s: %w", assetID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
