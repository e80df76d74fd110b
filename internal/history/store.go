// Package history keeps a local SQLite log of offline renders.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	KindRender    = "render"
	KindSubtitles = "subtitles"

	defaultLimit = 20
)

// Entry is one recorded render.
type Entry struct {
	ID        int64
	Kind      string
	Input     string
	Output    string
	Quality   string
	Voice     string
	Status    string
	Bytes     int64
	Elapsed   time.Duration
	CreatedAt time.Time
}

// Options configures Open. A disabled store records nothing.
type Options struct {
	Enable bool
	Path   string
	// Keep bounds the stored rows; <= 0 keeps everything.
	Keep   int
	Logger *slog.Logger
}

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	keep   int
	logger *slog.Logger
	clock  func() time.Time
}

// Open creates the database and schema when enabled.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{keep: opts.Keep, logger: logger, clock: time.Now}
	if !opts.Enable {
		return s, nil
	}
	if opts.Path == "" {
		return nil, errors.New("history path is empty")
	}

	if dir := filepath.Dir(opts.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)", opts.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s.db = db

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS renders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    input TEXT NOT NULL,
    output TEXT,
    quality TEXT,
    voice TEXT,
    status TEXT NOT NULL,
    bytes INTEGER NOT NULL DEFAULT 0,
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_renders_created ON renders(created_at_ms);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether entries are persisted.
func (s *Store) Enabled() bool { return s.db != nil }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts e and returns its id. Disabled stores return 0.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO renders(kind, input, output, quality, voice, status, bytes, elapsed_ms, created_at_ms)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Input, e.Output, e.Quality, e.Voice, e.Status, e.Bytes, e.Elapsed.Milliseconds(), e.CreatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("record render: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record render id: %w", err)
	}

	if s.keep > 0 {
		if err := s.prune(ctx); err != nil {
			s.logger.Warn("history prune failed", "error", err.Error())
		}
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, input, output, quality, voice, status, bytes, elapsed_ms, created_at_ms
		 FROM renders ORDER BY created_at_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			output    sql.NullString
			quality   sql.NullString
			voice     sql.NullString
			elapsedMs int64
			createdMs int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Input, &output, &quality, &voice, &e.Status, &e.Bytes, &elapsedMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Output, e.Quality, e.Voice = output.String, quality.String, voice.String
		e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM renders WHERE id NOT IN (
		     SELECT id FROM renders ORDER BY created_at_ms DESC, id DESC LIMIT ?
		 )`, s.keep)
	return err
}
