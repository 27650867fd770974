// Package store persists instrumentation results in a content-addressed
// SQLite cache: bundles are keyed by the source method's content hash, so an
// unchanged method is never instrumented twice.
package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates no cached bundle exists for the requested hash.
var ErrNotFound = errors.New("store: bundle not found")

// Store is the SQLite-backed bundle cache.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (or creates) the cache database at the given path, creating
// parent directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS bundles (
		hash TEXT PRIMARY KEY,
		method_name TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Put stores a serialized bundle under the method's content hash,
// overwriting any previous entry for the same hash.
func (s *Store) Put(hash [32]byte, methodName string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO bundles (hash, method_name, data, created_at) VALUES (?, ?, ?, ?)`,
		hex.EncodeToString(hash[:]), methodName, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: storing bundle for %s: %w", methodName, err)
	}
	return nil
}

// Get returns the cached bundle for the given hash, or ErrNotFound.
func (s *Store) Get(hash [32]byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM bundles WHERE hash = ?`,
		hex.EncodeToString(hash[:]),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading bundle: %w", err)
	}
	return data, nil
}

// Has reports whether a bundle exists for the given hash.
func (s *Store) Has(hash [32]byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM bundles WHERE hash = ?`,
		hex.EncodeToString(hash[:]),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: checking bundle: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of cached bundles.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM bundles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: counting bundles: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
