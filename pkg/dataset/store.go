package dataset

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a named group, dataset or attribute does not
// exist in the store.
var ErrNotFound = errors.New("not found")

// Store is a hierarchical measurement container backed by a single SQLite
// file. It holds a tree of named groups; each group carries scalar attributes
// and two-dimensional datasets with named per-element fields. Dataset rows are
// stored as zstd-compressed little-endian float64 blobs, one blob per row, so
// ranged rewrites of the same rows are idempotent.
type Store struct {
	db   *sql.DB
	path string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id INTEGER NOT NULL,
	name      TEXT NOT NULL,
	UNIQUE (parent_id, name)
);
CREATE TABLE IF NOT EXISTS attrs (
	group_id   INTEGER NOT NULL REFERENCES groups(id),
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	num_value  REAL,
	text_value TEXT,
	PRIMARY KEY (group_id, name)
);
CREATE TABLE IF NOT EXISTS datasets (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id INTEGER NOT NULL REFERENCES groups(id),
	name     TEXT NOT NULL,
	rows     INTEGER NOT NULL,
	cols     INTEGER NOT NULL,
	fields   TEXT NOT NULL,
	UNIQUE (group_id, name)
);
CREATE TABLE IF NOT EXISTS dataset_rows (
	dataset_id INTEGER NOT NULL REFERENCES datasets(id),
	row        INTEGER NOT NULL,
	data       BLOB NOT NULL,
	PRIMARY KEY (dataset_id, row)
);
`

// Create creates a new store file at path. It fails if the file already
// exists.
func Create(path string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create store: %s already exists", path)
	}
	s, err := open(path)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(schema); err != nil {
		s.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	// The root group is its own fixed row; parent_id 0 is never a real id.
	if _, err := s.db.Exec(`INSERT INTO groups (parent_id, name) VALUES (0, '/')`); err != nil {
		s.Close()
		return nil, fmt.Errorf("create root group: %w", err)
	}
	return s, nil
}

// Open opens an existing store file for reading and writing.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s, err := open(path)
	if err != nil {
		return nil, err
	}
	var rootID int64
	if err := s.db.QueryRow(`SELECT id FROM groups WHERE parent_id = 0`).Scan(&rootID); err != nil {
		s.Close()
		return nil, fmt.Errorf("open store: missing root group: %w", err)
	}
	return s, nil
}

func open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}

	return &Store{db: db, path: path, enc: enc, dec: dec}, nil
}

// Path returns the filesystem path of the store file.
func (s *Store) Path() string {
	return s.path
}

// Root returns the root group of the hierarchy.
func (s *Store) Root() (*Group, error) {
	var id int64
	if err := s.db.QueryRow(`SELECT id FROM groups WHERE parent_id = 0`).Scan(&id); err != nil {
		return nil, fmt.Errorf("query root group: %w", err)
	}
	return &Group{store: s, id: id, name: "/", path: "/"}, nil
}

// Flush forces buffered WAL pages into the main database file so that a
// crash after Flush returns cannot lose previously written data.
func (s *Store) Flush() error {
	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(FULL)`); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}

// Close releases the database connection and codec resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
