package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"wisefido-asset/internal/domain"
)

const assetColumns = `id::text, asset_code, name, category, ownership, status, location,
	manufacturer, serial_number, vendor, rental_rate, purchase_date,
	expected_lifespan_months, last_usage, created_at, updated_at`

type pgAssets struct {
	q querier
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var (
		a          domain.Asset
		vendor     sql.NullString
		rentalRate sql.NullFloat64
		purchase   sql.NullTime
		lastUsage  sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.AssetCode, &a.Name, &a.Category, &a.Ownership, &a.Status, &a.Location,
		&a.Manufacturer, &a.SerialNumber, &vendor, &rentalRate, &purchase,
		&a.ExpectedLifespanMonths, &lastUsage, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Vendor = stringPtr(vendor)
	a.RentalRate = floatPtr(rentalRate)
	a.PurchaseDate = timePtr(purchase)
	a.LastUsage = timePtr(lastUsage)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (r *pgAssets) CreateAsset(ctx context.Context, a *domain.Asset) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO assets (
			id, asset_code, name, category, ownership, status, location,
			manufacturer, serial_number, vendor, rental_rate, purchase_date,
			expected_lifespan_months, last_usage, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.AssetCode, a.Name, a.Category, string(a.Ownership), string(a.Status), a.Location,
		a.Manufacturer, a.SerialNumber, nullableString(a.Vendor), nullableFloat(a.RentalRate), nullableTime(a.PurchaseDate),
		a.ExpectedLifespanMonths, nullableTime(a.LastUsage), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("insert asset %s: %w", a.AssetCode, err)
	}
	return nil
}

func (r *pgAssets) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	if !validUUID(id) {
		return nil, domain.ErrAssetNotFound
	}
	a, err := scanAsset(r.q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return a, nil
}

func (r *pgAssets) GetAssetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	a, err := scanAsset(r.q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE asset_code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by code %s: %w", code, err)
	}
	return a, nil
}

func (r *pgAssets) ListAssets(ctx context.Context, f domain.AssetFilter) ([]*domain.Asset, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", argN))
		args = append(args, pq.Array(statuses))
		argN++
	}
	if len(f.Categories) > 0 {
		where = append(where, fmt.Sprintf("category = ANY($%d)", argN))
		args = append(args, pq.Array(f.Categories))
		argN++
	}
	if f.Ownership != "" {
		where = append(where, fmt.Sprintf("ownership = $%d", argN))
		args = append(args, string(f.Ownership))
		argN++
	}
	if f.Location != "" {
		where = append(where, fmt.Sprintf("LOWER(location) = LOWER($%d)", argN))
		args = append(args, f.Location)
		argN++
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR asset_code ILIKE $%d)", argN, argN))
		args = append(args, "%"+f.Search+"%")
		argN++
	}

	q := `SELECT ` + assetColumns + ` FROM assets WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY asset_code LIMIT $%d`, argN)
	args = append(args, defaultListLimit)

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := []*domain.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgAssets) UpdateAsset(ctx context.Context, a *domain.Asset) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE assets SET
			asset_code = $2, name = $3, category = $4, ownership = $5, status = $6, location = $7,
			manufacturer = $8, serial_number = $9, vendor = $10, rental_rate = $11, purchase_date = $12,
			expected_lifespan_months = $13, last_usage = $14, updated_at = $15
		WHERE id = $1`,
		a.ID, a.AssetCode, a.Name, a.Category, string(a.Ownership), string(a.Status), a.Location,
		a.Manufacturer, a.SerialNumber, nullableString(a.Vendor), nullableFloat(a.RentalRate), nullableTime(a.PurchaseDate),
		a.ExpectedLifespanMonths, nullableTime(a.LastUsage), a.UpdatedAt,
	)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("update asset %s: %w", a.AssetCode, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *pgAssets) DeleteAsset(ctx context.Context, id string) error {
	if !validUUID(id) {
		return domain.ErrAssetNotFound
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}
