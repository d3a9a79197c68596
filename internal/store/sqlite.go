package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// SQLiteStore implements Store on SQLite with WAL mode for concurrent
// multi-process access.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// validateIntegrity checks an existing database file before opening it.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteStore opens or creates the store at path.
// An empty path creates an in-memory store for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			// Auto-clear the corrupted index; the caller must reindex.
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("index_cleared", slog.String("path", path))
		}

		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer prevents lock contention; modernc.org/sqlite needs
	// pragmas set via statements, not DSN parameters.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the document, embedding, and state tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		doc_id      TEXT PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		file_name   TEXT NOT NULL DEFAULT '',
		client      TEXT NOT NULL DEFAULT '',
		matter      TEXT NOT NULL DEFAULT '',
		scope       TEXT NOT NULL DEFAULT '',
		total_pages INTEGER NOT NULL DEFAULT 0,
		indexed_at  INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(scope);

	CREATE TABLE IF NOT EXISTS embeddings (
		doc_id      TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content     TEXT NOT NULL,
		vector      BLOB NOT NULL,
		page        INTEGER NOT NULL DEFAULT 0,
		line_start  INTEGER NOT NULL DEFAULT 0,
		line_end    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (doc_id, chunk_index)
	);

	CREATE TABLE IF NOT EXISTS index_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceDocument deletes the prior chunk set and inserts the new one in a
// single transaction.
func (s *SQLiteStore) ReplaceDocument(ctx context.Context, doc Document, chunks []EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	indexedAt := doc.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents
		 (doc_id, title, file_name, client, matter, scope, total_pages, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.FileName, doc.Client, doc.Matter, doc.Scope,
		doc.TotalPages, indexedAt.Unix()); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM embeddings WHERE doc_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to delete prior chunks for %s: %w", doc.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings (doc_id, chunk_index, content, vector, page, line_start, line_end)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx,
			doc.ID, ch.ChunkIndex, ch.Content, encodeVector(ch.Vector),
			ch.Page, ch.LineStart, ch.LineEnd); err != nil {
			return fmt.Errorf("failed to insert chunk %d of %s: %w", ch.ChunkIndex, doc.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes the document and its chunks.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE doc_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", documentID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}

	return tx.Commit()
}

// QueryScope returns all embedded chunks owned by the scope, joined with
// their document metadata.
func (s *SQLiteStore) QueryScope(ctx context.Context, scope string) ([]EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.doc_id, e.chunk_index, e.content, e.vector,
		       e.page, e.line_start, e.line_end,
		       d.title, d.file_name, d.client, d.matter, d.scope, d.total_pages
		FROM embeddings e
		JOIN documents d ON d.doc_id = e.doc_id
		WHERE d.scope = ?
		ORDER BY e.doc_id, e.chunk_index`, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to query scope: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []EmbeddedChunk
	for rows.Next() {
		var ch EmbeddedChunk
		var blob []byte
		if err := rows.Scan(&ch.DocumentID, &ch.ChunkIndex, &ch.Content, &blob,
			&ch.Page, &ch.LineStart, &ch.LineEnd,
			&ch.Title, &ch.FileName, &ch.Client, &ch.Matter, &ch.Scope, &ch.TotalPages); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decode vector for %s/%d: %w", ch.DocumentID, ch.ChunkIndex, err)
		}
		ch.Vector = vec
		chunks = append(chunks, ch)
	}
	return chunks, rows.Err()
}

// CountScope returns the number of chunks owned by the scope.
func (s *SQLiteStore) CountScope(ctx context.Context, scope string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM embeddings e
		JOIN documents d ON d.doc_id = e.doc_id
		WHERE d.scope = ?`, scope).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scope: %w", err)
	}
	return count, nil
}

// Documents lists all document metadata rows.
func (s *SQLiteStore) Documents(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, file_name, client, matter, scope, total_pages, indexed_at
		FROM documents ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var d Document
		var indexedAt int64
		if err := rows.Scan(&d.ID, &d.Title, &d.FileName, &d.Client, &d.Matter,
			&d.Scope, &d.TotalPages, &indexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if indexedAt > 0 {
			d.IndexedAt = time.Unix(indexedAt, 0)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetState reads an index-level state value. Missing keys return "".
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM index_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state %s: %w", key, err)
	}
	return value, nil
}

// SetState writes an index-level state value.
func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO index_state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}

// Stats summarizes the stored corpus.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Stats{}, fmt.Errorf("store is closed")
	}

	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.Documents); err != nil {
		return Stats{}, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&st.Chunks); err != nil {
		return Stats{}, fmt.Errorf("failed to count chunks: %w", err)
	}
	return st, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
