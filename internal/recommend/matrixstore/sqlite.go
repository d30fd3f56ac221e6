package matrixstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/iishyfishyy/yehdekho/internal/similarity"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// SQLiteStore persists similarity matrices so later runs over the same
// catalog skip the O(n²·d) build
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) a matrix cache database
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	version, err := store.getMetadata("version")
	if err != nil || version != schemaVersion {
		// Unknown layout: start over rather than decode garbage
		if _, err := db.Exec(`DELETE FROM matrices`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to reset cache: %w", err)
		}
		if err := store.setMetadata("version", schemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matrices (
		key TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		terms_json TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get loads the matrix stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		size      int
		termsJSON string
		data      []byte
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT size, terms_json, data, created_at FROM matrices WHERE key = ?
	`, key).Scan(&size, &termsJSON, &data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query matrix: %w", err)
	}

	var terms []string
	if err := json.Unmarshal([]byte(termsJSON), &terms); err != nil {
		return nil, fmt.Errorf("failed to decode terms: %w", err)
	}

	matrix, err := decodeMatrix(data, size)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Key:       key,
		Terms:     terms,
		Matrix:    matrix,
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}

// Put stores an entry, replacing any previous matrix under the same key
func (s *SQLiteStore) Put(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Matrix == nil {
		return fmt.Errorf("empty entry")
	}

	termsJSON, err := json.Marshal(entry.Terms)
	if err != nil {
		return fmt.Errorf("failed to encode terms: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO matrices (key, size, terms_json, data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Key, entry.Matrix.Size(), string(termsJSON), encodeMatrix(entry.Matrix), createdAt.Unix())

	return err
}

// Delete removes a matrix by key
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM matrices WHERE key = ?`, key)
	return err
}

// Clear removes all matrices
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM matrices`)
	return err
}

// Count returns the number of stored matrices
func (s *SQLiteStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM matrices`).Scan(&count); err != nil {
		return 0
	}

	return count
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// getMetadata retrieves a metadata value
func (s *SQLiteStore) getMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("metadata key not found: %s", key)
	}
	return value, err
}

// setMetadata stores a metadata value
func (s *SQLiteStore) setMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO metadata (key, value)
		VALUES (?, ?)
	`, key, value)
	return err
}

// encodeMatrix writes the matrix rows as little-endian float64s
func encodeMatrix(m *similarity.Matrix) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(m.Size() * m.Size() * 8)
	for i := 0; i < m.Size(); i++ {
		binary.Write(buf, binary.LittleEndian, m.Row(i))
	}
	return buf.Bytes()
}

// decodeMatrix is the inverse of encodeMatrix
func decodeMatrix(b []byte, size int) (*similarity.Matrix, error) {
	if len(b) != size*size*8 {
		return nil, fmt.Errorf("corrupt matrix blob: %d bytes for size %d", len(b), size)
	}

	reader := bytes.NewReader(b)
	rows := make([][]float64, size)
	for i := range rows {
		rows[i] = make([]float64, size)
		if err := binary.Read(reader, binary.LittleEndian, rows[i]); err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", i, err)
		}
	}

	return similarity.FromRows(rows)
}
