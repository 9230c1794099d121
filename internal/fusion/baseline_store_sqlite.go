package fusion

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteBaselineStore persists rolling anomaly baselines so they survive
// process restart, the durability the specification requires for anomaly
// detection to remain well-defined across deploys. It uses the teacher's
// pure-Go modernc.org/sqlite driver, the same one the teacher's
// cmd/migrate and baseline-adjacent stores depend on.
type SQLiteBaselineStore struct {
	db *sql.DB
}

// NewSQLiteBaselineStore opens (creating if necessary) the baseline table
// at path.
func NewSQLiteBaselineStore(path string) (*SQLiteBaselineStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open baseline store: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS anomaly_baselines (
	zone TEXT NOT NULL,
	hour_of_week INTEGER NOT NULL,
	count INTEGER NOT NULL,
	mean REAL NOT NULL,
	m2 REAL NOT NULL,
	peak REAL NOT NULL,
	PRIMARY KEY (zone, hour_of_week)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create baseline schema: %w", err)
	}

	return &SQLiteBaselineStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteBaselineStore) Close() error {
	return s.db.Close()
}

// Get returns the current baseline for key, if any.
func (s *SQLiteBaselineStore) Get(key BaselineKey) (Baseline, bool, error) {
	row := s.db.QueryRow(
		`SELECT count, mean, m2, peak FROM anomaly_baselines WHERE zone = ? AND hour_of_week = ?`,
		key.Zone, key.HourOfWeek,
	)

	var b Baseline
	err := row.Scan(&b.Count, &b.Mean, &b.M2, &b.Peak)
	if err == sql.ErrNoRows {
		return Baseline{}, false, nil
	}
	if err != nil {
		return Baseline{}, false, fmt.Errorf("query baseline: %w", err)
	}
	return b, true, nil
}

// Put stores the baseline for key.
func (s *SQLiteBaselineStore) Put(key BaselineKey, b Baseline) error {
	_, err := s.db.Exec(
		`INSERT INTO anomaly_baselines (zone, hour_of_week, count, mean, m2, peak)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(zone, hour_of_week) DO UPDATE SET
			count = excluded.count, mean = excluded.mean, m2 = excluded.m2, peak = excluded.peak`,
		key.Zone, key.HourOfWeek, b.Count, b.Mean, b.M2, b.Peak,
	)
	if err != nil {
		return fmt.Errorf("upsert baseline: %w", err)
	}
	return nil
}
