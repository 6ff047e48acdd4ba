package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailored-agentic-units/chat/core/protocol"

	_ "modernc.org/sqlite"
)

const (
	schemaVersion      = 1
	defaultBusyTimeout = 5000
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS transcripts (
		id            TEXT PRIMARY KEY,
		model         TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		transcript_id TEXT    NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
		seq           INTEGER NOT NULL,
		role          TEXT    NOT NULL,
		content       TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (transcript_id, seq)
	)`,
}

// SQLiteStore is a Store backed by a single SQLite database file.
// Close releases the database handle.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at path, enabling WAL mode
// and a busy timeout, and migrates the schema. SQLite serializes writes, so
// the pool is limited to one connection.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout),
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM transcripts ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return ids, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Transcript, error) {
	t := Transcript{ID: id}
	var created, updated string

	err := s.db.QueryRowContext(ctx,
		"SELECT model, system_prompt, created_at, updated_at FROM transcripts WHERE id = ?", id,
	).Scan(&t.Model, &t.SystemPrompt, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
	}

	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("%w: %s: created_at: %v", ErrLoadFailed, id, err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("%w: %s: updated_at: %v", ErrLoadFailed, id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM messages WHERE transcript_id = ? ORDER BY seq ASC", id,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
	}
	defer func() { _ = rows.Close() }()

	t.Messages = []protocol.Message{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
		}
		t.Messages = append(t.Messages, protocol.NewMessage(protocol.Role(role), content))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
	}

	return &t, nil
}

// Save replaces the transcript and its messages in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, t *Transcript) error {
	if err := validateID(t.ID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if t.CreatedAt.IsZero() {
		var created string
		err := tx.QueryRowContext(ctx, "SELECT created_at FROM transcripts WHERE id = ?", t.ID).Scan(&created)
		if err == nil {
			t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		}
	}
	touch(t)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcripts (id, model, system_prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		t.ID, t.Model, t.SystemPrompt,
		t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE transcript_id = ?", t.ID); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}

	for seq, msg := range t.Messages {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO messages (transcript_id, seq, role, content) VALUES (?, ?, ?, ?)",
			t.ID, seq, string(msg.Role), msg.Content,
		)
		if err != nil {
			return fmt.Errorf("%w: %s: message %d: %v", ErrSaveFailed, t.ID, seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ids ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE transcript_id = ?", id); err != nil {
			return fmt.Errorf("delete failed: %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM transcripts WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete failed: %s: %w", id, err)
		}
	}
	return tx.Commit()
}
