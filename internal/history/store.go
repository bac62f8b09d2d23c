// Package history keeps a SQLite log of download invocations.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ytget/ytgrab/internal/model"
)

// List limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// Entry is a recorded download
type Entry struct {
	ID         string
	InputURL   string
	URL        string
	Title      string
	Engine     string
	Status     model.TaskStatus
	OutputPath string
	MimeType   string
	FileSize   int64
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is a download history backed by SQLite
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("history: mkdir %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// initSchema creates the downloads table if it doesn't exist
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS downloads (
		id          TEXT PRIMARY KEY,
		input_url   TEXT NOT NULL,
		url         TEXT NOT NULL,
		title       TEXT,
		engine      TEXT,
		status      TEXT NOT NULL,
		output_path TEXT,
		mime_type   TEXT,
		file_size   INTEGER,
		error       TEXT,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS downloads_started_at ON downloads(started_at);
	`)
	return err
}

// Record inserts or updates the entry for task
func (s *Store) Record(ctx context.Context, task *model.DownloadTask) error {
	if task == nil {
		return errors.New("history: nil task")
	}
	if !task.Status.IsFinished() {
		return fmt.Errorf("history: task %s is %s, not finished", task.ID, task.Status)
	}

	var finishedAt sql.NullInt64
	if !task.FinishedAt.IsZero() {
		finishedAt = sql.NullInt64{Int64: task.FinishedAt.UnixMilli(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO downloads
		 (id, input_url, url, title, engine, status, output_path, mime_type, file_size, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.InputURL, task.URL, task.Title, task.Engine, string(task.Status),
		task.OutputPath, task.MimeType, task.FileSize, task.LastError,
		task.StartedAt.UnixMilli(), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_url, url, title, engine, status, output_path, mime_type, file_size, error, started_at, finished_at
		 FROM downloads ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                         Entry
			status                                    string
			title, engine, outputPath, mimeType, errS sql.NullString
			fileSize, finishedAt                      sql.NullInt64
			startedAt                                 int64
		)
		if err := rows.Scan(&e.ID, &e.InputURL, &e.URL, &title, &engine, &status,
			&outputPath, &mimeType, &fileSize, &errS, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Title = title.String
		e.Engine = engine.String
		e.Status = model.TaskStatus(status)
		e.OutputPath = outputPath.String
		e.MimeType = mimeType.String
		e.FileSize = fileSize.Int64
		e.Error = errS.String
		e.StartedAt = time.UnixMilli(startedAt)
		if finishedAt.Valid {
			e.FinishedAt = time.UnixMilli(finishedAt.Int64)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database to release file handles on shutdown
func (s *Store) Close() error {
	return s.db.Close()
}
