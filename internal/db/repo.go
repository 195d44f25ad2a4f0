package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pharmacy-portal/pkg"
)

// ErrNoPending is returned when a conversation has no persisted pending
// resolution.
var ErrNoPending = errors.New("no pending resolution for conversation")

// Repository wraps catalog lookups and pending-resolution persistence over a
// single Postgres database. It implements both the catalog store port and
// the controller's pending store.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

const itemColumns = `id, name, dosage, form, price, stock_quantity`

// FindByNameAndDosage returns items whose name contains the candidate and
// whose dosage contains the requested dosage, both case-insensitive. Rows
// come back stock-first then cheapest-first, matching the tie-break the
// matcher applies.
func (r *Repository) FindByNameAndDosage(ctx context.Context, name, dosage string) ([]pkg.CatalogItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+itemColumns+`
         FROM catalog_items
         WHERE name ILIKE '%' || $1 || '%'
           AND dosage ILIKE '%' || $2 || '%'
         ORDER BY stock_quantity DESC, price ASC`,
		name, dosage)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

// FindByName returns items whose name contains the candidate,
// case-insensitive.
func (r *Repository) FindByName(ctx context.Context, name string) ([]pkg.CatalogItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+itemColumns+`
         FROM catalog_items
         WHERE name ILIKE '%' || $1 || '%'
         ORDER BY stock_quantity DESC, price ASC`,
		name)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]pkg.CatalogItem, error) {
	defer rows.Close()
	var items []pkg.CatalogItem
	for rows.Next() {
		var it pkg.CatalogItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Dosage, &it.Form, &it.Price, &it.StockQuantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SavePending upserts the unmatched subset of a resolution report under the
// conversation key.
func (r *Repository) SavePending(ctx context.Context, key string, unmatched []pkg.MatchResult) error {
	payload, err := json.Marshal(unmatched)
	if err != nil {
		return fmt.Errorf("encode pending resolution: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO pending_resolutions (conversation_key, payload, updated_at)
         VALUES ($1, $2, NOW())
         ON CONFLICT (conversation_key)
         DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		key, payload)
	return err
}

// LoadPending re-hydrates the stored unmatched subset for a conversation.
// ErrNoPending means the conversation has nothing blocking checkout.
func (r *Repository) LoadPending(ctx context.Context, key string) ([]pkg.MatchResult, error) {
	var payload []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT payload FROM pending_resolutions WHERE conversation_key = $1`,
		key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, err
	}
	var unmatched []pkg.MatchResult
	if err := json.Unmarshal(payload, &unmatched); err != nil {
		return nil, fmt.Errorf("decode pending resolution: %w", err)
	}
	return unmatched, nil
}

// ClearPending removes the persisted row for a conversation. Clearing a key
// that has no row is not an error.
func (r *Repository) ClearPending(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM pending_resolutions WHERE conversation_key = $1`, key)
	return err
}
