package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// payload is json rather than jsonb so class order survives the round trip.
const rosterSchema = `CREATE TABLE IF NOT EXISTS roster_snapshots (
    id TEXT PRIMARY KEY,
    payload JSON NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresRosterRepository keeps the roster as a single row.
type PostgresRosterRepository struct {
	db  *sqlx.DB
	id  string
	now func() time.Time
}

// NewPostgresRosterRepository constructs the repository for row id.
func NewPostgresRosterRepository(db *sqlx.DB, id string) *PostgresRosterRepository {
	if id == "" {
		id = DefaultRosterKey
	}
	return &PostgresRosterRepository{db: db, id: id, now: time.Now}
}

// EnsureSchema creates the snapshot table when missing.
func (r *PostgresRosterRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, rosterSchema); err != nil {
		return fmt.Errorf("ensure roster schema: %w", err)
	}
	return nil
}

// Load reads the roster row; no row yields an empty roster.
func (r *PostgresRosterRepository) Load(ctx context.Context) (*models.Roster, error) {
	const query = `SELECT payload FROM roster_snapshots WHERE id = $1`
	var raw []byte
	if err := r.db.GetContext(ctx, &raw, query, r.id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewRoster(), nil
		}
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return decodeRoster(raw)
}

// Save upserts the roster row.
func (r *PostgresRosterRepository) Save(ctx context.Context, roster *models.Roster) error {
	const query = `INSERT INTO roster_snapshots (id, payload, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (id)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	payload, err := encodeRoster(roster)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, r.id, string(payload), r.now().UTC()); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}
