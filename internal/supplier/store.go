package supplier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no supplier matches the lookup.
var ErrNotFound = errors.New("supplier not found")

// Supplier is a heating oil supplier and its latest quoted price.
type Supplier struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Phone      string    `json:"phone,omitempty"`
	Website    string    `json:"website,omitempty"`
	Areas      []string  `json:"areas"`
	BasePrice  float64   `json:"base_price"`
	BaseVolume float64   `json:"base_volume"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the persistence contract for suppliers.
type Store interface {
	List(ctx context.Context) ([]Supplier, error)
	ListByArea(ctx context.Context, outward string) ([]Supplier, error)
	GetBySlug(ctx context.Context, slug string) (Supplier, error)
	Upsert(ctx context.Context, s Supplier) (Supplier, error)
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore implements Store on Postgres.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a Postgres-backed supplier store.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

const supplierColumns = `id, name, slug, phone, website, areas, base_price::float8, base_volume::float8, updated_at`

// List returns all suppliers ordered by name.
func (s *PGStore) List(ctx context.Context) ([]Supplier, error) {
	rows, err := s.db.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return collect(rows)
}

// ListByArea returns suppliers that deliver to the outward postcode.
func (s *PGStore) ListByArea(ctx context.Context, outward string) ([]Supplier, error) {
	rows, err := s.db.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE $1 = ANY(areas) ORDER BY name`, strings.ToUpper(outward))
	if err != nil {
		return nil, fmt.Errorf("list suppliers by area: %w", err)
	}
	return collect(rows)
}

// GetBySlug loads a single supplier.
func (s *PGStore) GetBySlug(ctx context.Context, slug string) (Supplier, error) {
	row := s.db.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE slug = $1`, slug)
	sup, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("get supplier %q: %w", slug, err)
	}
	return sup, nil
}

// Upsert inserts or updates a supplier keyed by slug and returns the stored row.
func (s *PGStore) Upsert(ctx context.Context, in Supplier) (Supplier, error) {
	areas := make([]string, 0, len(in.Areas))
	for _, a := range in.Areas {
		if trimmed := strings.ToUpper(strings.TrimSpace(a)); trimmed != "" {
			areas = append(areas, trimmed)
		}
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO suppliers (name, slug, phone, website, areas, base_price, base_volume, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::float8, $7::float8, now())
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			areas = EXCLUDED.areas,
			base_price = EXCLUDED.base_price,
			base_volume = EXCLUDED.base_volume,
			updated_at = now()
		RETURNING `+supplierColumns,
		in.Name, in.Slug, in.Phone, in.Website, areas, in.BasePrice, in.BaseVolume)
	sup, err := scan(row)
	if err != nil {
		return Supplier{}, fmt.Errorf("upsert supplier %q: %w", in.Slug, err)
	}
	return sup, nil
}

func collect(rows pgx.Rows) ([]Supplier, error) {
	defer rows.Close()
	out := make([]Supplier, 0)
	for rows.Next() {
		sup, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

func scan(row pgx.Row) (Supplier, error) {
	var sup Supplier
	err := row.Scan(&sup.ID, &sup.Name, &sup.Slug, &sup.Phone, &sup.Website, &sup.Areas, &sup.BasePrice, &sup.BaseVolume, &sup.UpdatedAt)
	return sup, err
}
