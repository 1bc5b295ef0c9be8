package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lazypower/nanobrain/internal/brain"
)

const (
	docExt  = ".json"
	tempExt = ".tmp"
)

// FileStore keeps one JSON document per user in a directory.
type FileStore struct {
	Dir string

	mu sync.RWMutex

	// rename replaces the target with the fully written temp file. Tests
	// swap it to simulate a crash between write and replace.
	rename func(oldpath, newpath string) error
}

// DefaultDir returns the default brain directory: ~/.nanobrain/user_brains
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".nanobrain", "user_brains"), nil
}

// NewFileStore opens (or creates) the brain directory at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create brain dir: %w", err)
	}
	return &FileStore{Dir: dir, rename: os.Rename}, nil
}

// Path returns the document path for a user id. The empty id is stored as
// a bare ".json".
func (s *FileStore) Path(userID string) string {
	return filepath.Join(s.Dir, SanitizeUserID(userID)+docExt)
}

// Load returns the stored brain for userID. A missing or malformed document
// yields a fresh brain without error.
func (s *FileStore) Load(userID string) (*brain.Brain, error) {
	path := s.Path(userID)

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()

	if errors.Is(err, fs.ErrNotExist) {
		return brain.New(), nil
	}
	if err != nil {
		return nil, &StorageError{Op: "load", UserID: userID, Err: err}
	}

	b, _ := decodeBrain(data)
	return b, nil
}

// Save writes the brain to a temp file in the same directory and renames it
// over the target once fully written and synced. Readers never observe a
// partial document.
func (s *FileStore) Save(userID string, b *brain.Brain) error {
	path := s.Path(userID)
	data, err := encodeBrain(b)
	if err != nil {
		return &StorageError{Op: "save", UserID: userID, Err: fmt.Errorf("encode: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(path, data); err != nil {
		return &StorageError{Op: "save", UserID: userID, Err: err}
	}
	return nil
}

func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.Dir, filepath.Base(path)+".*"+tempExt)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	rename := s.rename
	if rename == nil {
		rename = os.Rename
	}
	if err := rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	committed = true
	return nil
}

// ListUsers returns the ids that have a persisted document, sorted.
func (s *FileStore) ListUsers() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), docExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), docExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// SweepTemp removes temp files left behind by writers that died before the
// rename, if they are older than olderThan. Returns the number removed.
func (s *FileStore) SweepTemp(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, &StorageError{Op: "sweep", Err: err}
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), tempExt) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Describe returns a human-readable location for health output.
func (s *FileStore) Describe() string {
	return "file:" + s.Dir
}
