// Package chainstore keeps an append-only sqlite record of finished
// quiz chain runs, so past results survive restarts and can be listed
// from the cli.
package chainstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the run database at path.
// `:memory:` is accepted for tests.
func Open(path string) (Store, error) {
	if path != ":memory:" {
		os.MkdirAll(filepath.Dir(path), 0777)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, fmt.Errorf("open run db: %w", err)
	}

	// sqlite only supports one writer at a time, see
	// https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return Store{}, fmt.Errorf("open run db: %w", err)
	}

	return NewStore(db)
}

func NewStore(db *sql.DB) (Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("apply run db schema: %w", err)
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

type Run struct {
	Id         string
	StartUrl   string
	Email      string
	Ok         bool
	Result     map[string]any
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s Store) Record(ctx context.Context, run Run) error {
	result, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`insert into chain_run (id, start_url, email, ok, result, started_at, finished_at)
		 values (?, ?, ?, ?, ?, ?, ?)`,
		run.Id,
		run.StartUrl,
		run.Email,
		run.Ok,
		string(result),
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (s Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`select id, start_url, email, ok, result, started_at, finished_at
		 from chain_run where id = ?`,
		id,
	)
	return scanRun(row.Scan)
}

// List returns the most recent runs, newest first.
func (s Store) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select id, start_url, email, ok, result, started_at, finished_at
		 from chain_run order by started_at desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...any) error) (Run, error) {
	var run Run
	var result string
	var startedAt, finishedAt int64

	err := scan(
		&run.Id,
		&run.StartUrl,
		&run.Email,
		&run.Ok,
		&result,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	err = json.Unmarshal([]byte(result), &run.Result)
	if err != nil {
		return Run{}, fmt.Errorf("unmarshal run result: %w", err)
	}
	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finishedAt, 0)
	return run, nil
}
