// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runstore persists completed research runs to SQLite so they can
// be listed, inspected, and exported after the fact. Persistence is opt-in;
// the pipeline itself never touches the store.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/webresearch/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "runs.db"
)

// Run is a persisted research run.
type Run struct {
	ID      string               `json:"id" yaml:"id"`
	Topic   string               `json:"topic" yaml:"topic"`
	Created time.Time            `json:"created" yaml:"created"`
	Output  types.ResearchOutput `json:"output" yaml:"output"`
}

// RunSummary is one row of a run listing.
type RunSummary struct {
	ID      string
	Topic   string
	Created time.Time
	Results int
}

// Store manages the run database.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the run database at dir/index/runs.db,
// creating the schema if needed.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			created TEXT NOT NULL,
			iterations INTEGER,
			candidates_seen INTEGER,
			fetched INTEGER,
			rejected INTEGER,
			summary_failures INTEGER,
			query_errors TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT,
			url TEXT NOT NULL,
			snippet TEXT,
			published TEXT,
			quality_score REAL,
			reasons TEXT,
			summary TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_run_id ON sources(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun persists out under a fresh run ID and returns it.
func (s *Store) SaveRun(ctx context.Context, topic string, out types.ResearchOutput) (string, error) {
	created := time.Now().UTC()
	id := fmt.Sprintf("%s-%06d", created.Format("20060102-150405"), created.Nanosecond()/1000)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	queryErrorsJSON, _ := json.Marshal(out.QueryErrors)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, topic, created, iterations, candidates_seen, fetched, rejected, summary_failures, query_errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, topic, created.Format(time.RFC3339Nano),
		out.Iterations, out.CandidatesSeen, out.Fetched, out.Rejected,
		out.SummaryFailures, string(queryErrorsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (run_id, position, title, url, snippet, published, quality_score, reasons, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range out.Results {
		reasonsJSON, _ := json.Marshal(r.Reasons)
		published := ""
		if !r.Published.IsZero() {
			published = r.Published.Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx,
			id, i, r.Title, r.URL, r.Snippet, published,
			r.QualityScore, string(reasonsJSON), r.Summary,
		); err != nil {
			return "", fmt.Errorf("inserting source %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// ListRuns returns run summaries, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.topic, r.created,
			(SELECT count(*) FROM sources WHERE run_id = r.id)
		 FROM runs r ORDER BY r.created DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.ID, &r.Topic, &created, &r.Results); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Created, _ = time.Parse(time.RFC3339Nano, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads one run with its sources in rank order.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id}
	var created, queryErrorsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT topic, created, iterations, candidates_seen, fetched, rejected, summary_failures, query_errors
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.Topic, &created, &run.Output.Iterations, &run.Output.CandidatesSeen,
		&run.Output.Fetched, &run.Output.Rejected, &run.Output.SummaryFailures, &queryErrorsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	run.Created, _ = time.Parse(time.RFC3339Nano, created)
	_ = json.Unmarshal([]byte(queryErrorsJSON), &run.Output.QueryErrors)

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, url, snippet, published, quality_score, reasons, summary
		 FROM sources WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r types.ScoredResult
		var published, reasonsJSON string
		if err := rows.Scan(&r.Title, &r.URL, &r.Snippet, &published,
			&r.QualityScore, &reasonsJSON, &r.Summary); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if published != "" {
			r.Published, _ = time.Parse(time.RFC3339, published)
		}
		_ = json.Unmarshal([]byte(reasonsJSON), &r.Reasons)
		run.Output.Results = append(run.Output.Results, r)
	}
	return run, rows.Err()
}

// ExportYAML writes a run to dir/index/[id].yaml and returns the path.
func (s *Store) ExportYAML(ctx context.Context, id string) (string, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, indexDir, id+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}
