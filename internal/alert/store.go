package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

var (
	// ErrNotFound is returned when the alert does not exist.
	ErrNotFound = errors.New("alert not found")
	// ErrDuplicate is returned when the same email already watches the postcode and volume.
	ErrDuplicate = errors.New("alert already exists")
)

// Alert asks to be told when the cheapest price for a postcode and volume
// drops to or below TargetPrice.
type Alert struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Postcode    string     `json:"postcode"`
	Volume      float64    `json:"volume"`
	TargetPrice float64    `json:"target_price"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Store persists alerts.
type Store interface {
	Create(ctx context.Context, a Alert) (Alert, error)
	Get(ctx context.Context, id uuid.UUID) (Alert, error)
	ListPending(ctx context.Context, limit int) ([]Alert, error)
	// MarkTriggered stamps the alert once; it reports false when it was already triggered.
	MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// PGStore implements Store on Postgres.
type PGStore struct {
	db supplier.DBTX
}

// NewPGStore constructs a Postgres-backed alert store.
func NewPGStore(db supplier.DBTX) *PGStore {
	return &PGStore{db: db}
}

const alertColumns = `id, email, postcode, volume::float8, target_price::float8, triggered_at, created_at`

// Create implements Store.
func (s *PGStore) Create(ctx context.Context, a Alert) (Alert, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO price_alerts (email, postcode, volume, target_price)
		VALUES ($1, $2, $3::float8, $4::float8)
		RETURNING `+alertColumns,
		a.Email, a.Postcode, a.Volume, a.TargetPrice)
	created, err := scanAlert(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Alert{}, ErrDuplicate
		}
		return Alert{}, fmt.Errorf("create alert: %w", err)
	}
	return created, nil
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Alert, error) {
	a, err := scanAlert(s.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM price_alerts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, ErrNotFound
	}
	if err != nil {
		return Alert{}, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// ListPending implements Store, oldest first.
func (s *PGStore) ListPending(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(ctx, `SELECT `+alertColumns+` FROM price_alerts WHERE triggered_at IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending alerts: %w", err)
	}
	defer rows.Close()
	out := make([]Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkTriggered implements Store.
func (s *PGStore) MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE price_alerts SET triggered_at = $2 WHERE id = $1 AND triggered_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark alert triggered: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.Email, &a.Postcode, &a.Volume, &a.TargetPrice, &a.TriggeredAt, &a.CreatedAt)
	return a, err
}
