package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ScheduleSchema is the SQL DDL for the sweeping-rules table.
const ScheduleSchema = `
CREATE TABLE IF NOT EXISTS sweep_rules (
    location TEXT NOT NULL,
    side     TEXT NOT NULL,
    weekday  SMALLINT NOT NULL,
    hour     SMALLINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sweep_rules_location ON sweep_rules(location);
`

// ScheduleDB is the database interface used by [PGScheduleStore]. Both
// *pgxpool.Pool and *pgx.Conn satisfy it.
type ScheduleDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGScheduleStore is a [ScheduleStore] backed by PostgreSQL, for
// installations that sync municipal sweeping data instead of maintaining
// rules in the config file.
type PGScheduleStore struct {
	db ScheduleDB
}

var _ ScheduleStore = (*PGScheduleStore)(nil)

// NewPGScheduleStore returns a store over the given connection or pool.
func NewPGScheduleStore(db ScheduleDB) *PGScheduleStore {
	return &PGScheduleStore{db: db}
}

// Migrate executes the [ScheduleSchema] DDL.
func (s *PGScheduleStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, ScheduleSchema); err != nil {
		return fmt.Errorf("executor: migrate sweep_rules: %w", err)
	}
	return nil
}

// SidesFor implements [ScheduleStore].
func (s *PGScheduleStore) SidesFor(ctx context.Context, location string) ([]string, error) {
	const query = `
		SELECT DISTINCT side FROM sweep_rules
		WHERE $1 ILIKE '%' || location || '%' OR location ILIKE '%' || $1 || '%'
		ORDER BY side`

	rows, err := s.db.Query(ctx, query, location)
	if err != nil {
		return nil, fmt.Errorf("executor: query sides for %q: %w", location, err)
	}
	defer rows.Close()

	var sides []string
	for rows.Next() {
		var side string
		if err := rows.Scan(&side); err != nil {
			return nil, fmt.Errorf("executor: scan side: %w", err)
		}
		sides = append(sides, side)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("executor: sides rows: %w", err)
	}
	return sides, nil
}

// NextSweep implements [ScheduleStore]. Matching rows are fetched and the
// next occurrence is computed in process, since "next Tuesday at 8" depends
// on the caller's clock and timezone, not the database's.
func (s *PGScheduleStore) NextSweep(ctx context.Context, location, side string, after time.Time) (time.Time, error) {
	const query = `
		SELECT weekday, hour FROM sweep_rules
		WHERE ($1 ILIKE '%' || location || '%' OR location ILIKE '%' || $1 || '%')
		  AND lower(side) = lower($2)`

	rows, err := s.db.Query(ctx, query, location, side)
	if err != nil {
		return time.Time{}, fmt.Errorf("executor: query sweep rules for %q: %w", location, err)
	}
	defer rows.Close()

	var best time.Time
	found := false
	for rows.Next() {
		var weekday, hour int
		if err := rows.Scan(&weekday, &hour); err != nil {
			return time.Time{}, fmt.Errorf("executor: scan sweep rule: %w", err)
		}
		next := nextOccurrence(after, time.Weekday(weekday), hour)
		if !found || next.Before(best) {
			best = next
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, fmt.Errorf("executor: sweep rows: %w", err)
	}
	if !found {
		return time.Time{}, ErrNoSchedule
	}
	return best, nil
}
