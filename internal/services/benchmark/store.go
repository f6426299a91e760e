package benchmark

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS benchmark_rows (
	run_id             TEXT NOT NULL,
	bench_name         TEXT NOT NULL,
	seq                INTEGER NOT NULL,
	time_s             INTEGER NOT NULL,
	model_fps          DOUBLE NOT NULL,
	model_time_ms      DOUBLE NOT NULL,
	max_people         INTEGER NOT NULL,
	min_people         INTEGER NOT NULL,
	avg_people         INTEGER NOT NULL,
	avg_bikes          INTEGER NOT NULL,
	avg_cars           INTEGER NOT NULL,
	max_people_in_zone INTEGER NOT NULL,
	min_people_in_zone INTEGER NOT NULL,
	avg_people_in_zone INTEGER NOT NULL,
	max_time_in_zone   INTEGER NOT NULL,
	min_time_in_zone   INTEGER NOT NULL,
	avg_time_in_zone   INTEGER NOT NULL,
	sum_entrances      INTEGER NOT NULL,
	sum_exits          INTEGER NOT NULL,
	created_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS benchmark_rows_bench_name ON benchmark_rows (bench_name);
`

// Row is one aggregation window of a benchmark run.
type Row struct {
	Seq             int
	TimeS           int
	ModelFPS        float64
	ModelTimeMs     float64
	MaxPeople       int
	MinPeople       int
	AvgPeople       int
	AvgBikes        int
	AvgCars         int
	MaxPeopleInZone int
	MinPeopleInZone int
	AvgPeopleInZone int
	MaxTimeInZone   int
	MinTimeInZone   int
	AvgTimeInZone   int
	SumEntrances    int
	SumExits        int
}

// Store keeps benchmark rows in SQLite.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// database/sql pools connections; a single one keeps SQLite writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create benchmark schema: %w", err)
	}
	return &Store{db: db}, nil
}

// BeginRun removes the rows of earlier runs with the same bench name.
func (s *Store) BeginRun(ctx context.Context, runID, benchName string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM benchmark_rows WHERE bench_name = ? AND run_id <> ?", benchName, runID)
	return err
}

func (s *Store) Insert(ctx context.Context, runID, benchName string, r Row) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO benchmark_rows (
		run_id, bench_name, seq, time_s, model_fps, model_time_ms,
		max_people, min_people, avg_people, avg_bikes, avg_cars,
		max_people_in_zone, min_people_in_zone, avg_people_in_zone,
		max_time_in_zone, min_time_in_zone, avg_time_in_zone,
		sum_entrances, sum_exits
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, benchName, r.Seq, r.TimeS, r.ModelFPS, r.ModelTimeMs,
		r.MaxPeople, r.MinPeople, r.AvgPeople, r.AvgBikes, r.AvgCars,
		r.MaxPeopleInZone, r.MinPeopleInZone, r.AvgPeopleInZone,
		r.MaxTimeInZone, r.MinTimeInZone, r.AvgTimeInZone,
		r.SumEntrances, r.SumExits)
	return err
}

// Rows returns the rows stored for benchName in insertion order.
func (s *Store) Rows(ctx context.Context, benchName string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		seq, time_s, model_fps, model_time_ms,
		max_people, min_people, avg_people, avg_bikes, avg_cars,
		max_people_in_zone, min_people_in_zone, avg_people_in_zone,
		max_time_in_zone, min_time_in_zone, avg_time_in_zone,
		sum_entrances, sum_exits
	FROM benchmark_rows WHERE bench_name = ? ORDER BY seq`, benchName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Seq, &r.TimeS, &r.ModelFPS, &r.ModelTimeMs,
			&r.MaxPeople, &r.MinPeople, &r.AvgPeople, &r.AvgBikes, &r.AvgCars,
			&r.MaxPeopleInZone, &r.MinPeopleInZone, &r.AvgPeopleInZone,
			&r.MaxTimeInZone, &r.MinTimeInZone, &r.AvgTimeInZone,
			&r.SumEntrances, &r.SumExits); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
