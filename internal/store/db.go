package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lazypower/nanobrain/internal/brain"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one JSON brain document per row in a SQLite database.
type SQLiteStore struct {
	*sql.DB
	Path string
}

// DefaultDBPath returns the default database path: ~/.nanobrain/brains.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".nanobrain", "brains.db"), nil
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// configures pragmas, and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db := &SQLiteStore{DB: sqlDB, Path: path}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory SQLite database for testing.
func OpenMemory() (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would get its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	db := &SQLiteStore{DB: sqlDB, Path: ":memory:"}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *SQLiteStore) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// Load returns the stored brain for userID, or a fresh one if the row is
// missing or holds a malformed document.
func (db *SQLiteStore) Load(userID string) (*brain.Brain, error) {
	id := SanitizeUserID(userID)

	var doc string
	err := db.QueryRow(`SELECT document FROM brains WHERE user_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return brain.New(), nil
	}
	if err != nil {
		return nil, &StorageError{Op: "load", UserID: userID, Err: err}
	}

	b, _ := decodeBrain([]byte(doc))
	return b, nil
}

// Save upserts the brain document inside a transaction; a failed write
// leaves the previous row untouched.
func (db *SQLiteStore) Save(userID string, b *brain.Brain) error {
	id := SanitizeUserID(userID)
	data, err := encodeBrain(b)
	if err != nil {
		return &StorageError{Op: "save", UserID: userID, Err: fmt.Errorf("encode: %w", err)}
	}

	tx, err := db.Begin()
	if err != nil {
		return &StorageError{Op: "save", UserID: userID, Err: fmt.Errorf("begin: %w", err)}
	}
	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO brains (user_id, document, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`, id, string(data), now, now); err != nil {
		tx.Rollback()
		return &StorageError{Op: "save", UserID: userID, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "save", UserID: userID, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// ListUsers returns every stored user id, sorted.
func (db *SQLiteStore) ListUsers() ([]string, error) {
	rows, err := db.Query(`SELECT user_id FROM brains ORDER BY user_id`)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return ids, nil
}

// Describe returns a human-readable location for health output.
func (db *SQLiteStore) Describe() string {
	return "sqlite:" + db.Path
}
