package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"diagsync/internal/diag"
)

// sqliteSchema is executed on every open; IF NOT EXISTS keeps it idempotent.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cells (
    analyzer         TEXT    NOT NULL,
    project          TEXT    NOT NULL,
    document         TEXT    NOT NULL DEFAULT '',
    kind             INTEGER NOT NULL,
    schema           INTEGER NOT NULL,
    text_version     INTEGER NOT NULL,
    semantic_version INTEGER NOT NULL,
    items            BLOB,
    updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (analyzer, project, document, kind)
);
`

// SQLiteStore keeps cells in one SQLite table. Records are stored as a
// msgpack blob; stamps live in their own columns so they can be queried.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a database at path in WAL mode and
// creates the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, key Key) (Existing, error) {
	if err := validateKey(key); err != nil {
		return Absent(), err
	}
	const q = `
		SELECT schema, text_version, semantic_version, items FROM cells
		WHERE analyzer = ? AND project = ? AND document = ? AND kind = ?`
	var (
		schema      int64
		textV, semV int64
		blob        []byte
	)
	err := s.db.QueryRowContext(ctx, q, key.Analyzer, key.Artifact.Project, key.Artifact.Document, int(key.Kind)).
		Scan(&schema, &textV, &semV, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Absent(), nil
	}
	if err != nil {
		return Absent(), err
	}
	if schema != int64(diskSchemaVersion) {
		return Absent(), nil
	}

	text, err := safecast.Conv[uint64](textV)
	if err != nil {
		return Absent(), fmt.Errorf("text version: %w", err)
	}
	sem, err := safecast.Conv[uint64](semV)
	if err != nil {
		return Absent(), fmt.Errorf("semantic version: %w", err)
	}
	var items []diag.Record
	if len(blob) > 0 {
		if err := msgpack.Unmarshal(blob, &items); err != nil {
			return Absent(), fmt.Errorf("decode items: %w", err)
		}
	}
	return Present(Batch{TextVersion: Stamp(text), SemanticVersion: Stamp(sem), Items: items}), nil
}

func (s *SQLiteStore) Save(ctx context.Context, key Key, b Batch) error {
	if err := validateKey(key); err != nil {
		return err
	}
	textV, err := safecast.Conv[int64](uint64(b.TextVersion))
	if err != nil {
		return fmt.Errorf("text version: %w", err)
	}
	semV, err := safecast.Conv[int64](uint64(b.SemanticVersion))
	if err != nil {
		return fmt.Errorf("semantic version: %w", err)
	}
	blob, err := msgpack.Marshal(b.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	const q = `
		INSERT INTO cells (analyzer, project, document, kind, schema, text_version, semantic_version, items, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(analyzer, project, document, kind) DO UPDATE SET
			schema = excluded.schema,
			text_version = excluded.text_version,
			semantic_version = excluded.semantic_version,
			items = excluded.items,
			updated_at = CURRENT_TIMESTAMP`
	_, err = s.db.ExecContext(ctx, q,
		key.Analyzer, key.Artifact.Project, key.Artifact.Document, int(key.Kind),
		int(diskSchemaVersion), textV, semV, blob)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key Key) error {
	if err := validateKey(key); err != nil {
		return err
	}
	const q = `DELETE FROM cells WHERE analyzer = ? AND project = ? AND document = ? AND kind = ?`
	_, err := s.db.ExecContext(ctx, q, key.Analyzer, key.Artifact.Project, key.Artifact.Document, int(key.Kind))
	return err
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]Key, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT analyzer, project, document, kind FROM cells WHERE schema = ? ORDER BY analyzer, project, document, kind",
		int(diskSchemaVersion))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var (
			k    Key
			kind int64
		)
		if err := rows.Scan(&k.Analyzer, &k.Artifact.Project, &k.Artifact.Document, &kind); err != nil {
			return nil, err
		}
		kv, err := safecast.Conv[uint8](kind)
		if err != nil {
			return nil, fmt.Errorf("kind column: %w", err)
		}
		k.Kind = Kind(kv)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
