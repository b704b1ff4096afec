// Package store persists run history to a local sqlite database so past
// runs can be listed without digging through the runs directory.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thinkscotty/medialens/internal/schema"
)

type Store struct {
	conn *sql.DB
	path string
}

// RunRecord is one pipeline run's summary row.
type RunRecord struct {
	ID           string
	Topic        string
	Model        string
	TotalChecked int
	WithCoverage int
	ReportPath   string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// New opens (creating if needed) the history database.
func New(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(2)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                    TEXT    PRIMARY KEY,
			topic                 TEXT    NOT NULL,
			model                 TEXT    NOT NULL DEFAULT '',
			total_sources_checked INTEGER NOT NULL DEFAULT 0,
			sources_with_coverage INTEGER NOT NULL DEFAULT 0,
			report_path           TEXT    NOT NULL DEFAULT '',
			started_at            TEXT    NOT NULL,
			finished_at           TEXT    NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			country        TEXT    NOT NULL,
			media_name     TEXT    NOT NULL,
			homepage_url   TEXT    NOT NULL,
			found_coverage INTEGER NOT NULL DEFAULT 0,
			headline       TEXT    NOT NULL DEFAULT '',
			error          TEXT    NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun saves one run and its per-source results in a transaction.
func (s *Store) RecordRun(run RunRecord, results []schema.SourceProcessingResult) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, topic, model, total_sources_checked, sources_with_coverage, report_path, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Topic, run.Model, run.TotalChecked, run.WithCoverage,
		run.ReportPath, formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, r := range results {
		headline := ""
		if r.Article != nil {
			headline = r.Article.Headline
		}
		_, err = tx.Exec(`
			INSERT INTO run_results (run_id, country, media_name, homepage_url, found_coverage, headline, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Country, r.MediaName, r.HomepageURL, boolToInt(r.FoundCoverage), headline, r.Error)
		if err != nil {
			return fmt.Errorf("insert result for %s: %w", r.MediaName, err)
		}
	}

	return tx.Commit()
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.Query(`
		SELECT id, topic, model, total_sources_checked, sources_with_coverage, report_path, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var startedAt, finishedAt string
		if err := rows.Scan(&r.ID, &r.Topic, &r.Model, &r.TotalChecked, &r.WithCoverage,
			&r.ReportPath, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		r.StartedAt, _ = parseTime(startedAt)
		r.FinishedAt, _ = parseTime(finishedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func parseTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
