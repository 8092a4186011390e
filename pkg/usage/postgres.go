package usage

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists usage counters durably. Redis holds the hot
// counters; this store holds the periodic snapshots the snapshotter writes,
// and serves reads when Redis has lost a counter.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a postgres-backed usage store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CurrentUsage reads the snapshotted counter, zero when absent
func (s *PostgresStore) CurrentUsage(ctx context.Context, teamID int64, feature, period string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM team_usage_snapshots
		WHERE team_id = $1 AND feature = $2 AND period = $3`,
		teamID, feature, period).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to read usage snapshot: %w", err)
	}
	return value, nil
}

// AddUsage increments the durable counter
func (s *PostgresStore) AddUsage(ctx context.Context, teamID int64, feature, period string, amount int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_usage_snapshots (team_id, feature, period, value, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (team_id, feature, period)
		DO UPDATE SET value = team_usage_snapshots.value + EXCLUDED.value, updated_at = NOW()`,
		teamID, feature, period, amount)
	if err != nil {
		return fmt.Errorf("failed to increment usage snapshot: %w", err)
	}
	return nil
}

// Upsert overwrites the durable counter with an authoritative value from
// Redis. Snapshots only move forward: a stale Redis read never shrinks the
// stored value.
func (s *PostgresStore) Upsert(ctx context.Context, c Counter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_usage_snapshots (team_id, feature, period, value, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (team_id, feature, period)
		DO UPDATE SET value = GREATEST(team_usage_snapshots.value, EXCLUDED.value), updated_at = NOW()`,
		c.TeamID, c.Feature, c.Period, c.Value)
	if err != nil {
		return fmt.Errorf("failed to upsert usage snapshot: %w", err)
	}
	return nil
}
