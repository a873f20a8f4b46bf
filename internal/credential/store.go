// Package credential persists the single API key the client forwards on
// protected requests.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrEmpty is returned when saving a blank key.
var ErrEmpty = errors.New("API key is empty")

// Store loads and saves one credential string.
type Store interface {
	// Load returns the stored key and whether one exists.
	Load() (string, bool, error)
	Save(key string) error
	Clear() error
}

// FileStore keeps the key in a single 0600 file. Reads and writes take a
// lock on a sibling .lock file so the TUI and one-shot commands can run
// side by side.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credential file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) lock() *flock.Flock {
	return flock.New(s.path + ".lock")
}

// Load reads the key. A missing file means no key, not an error.
func (s *FileStore) Load() (string, bool, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return "", false, fmt.Errorf("create credential directory: %w", err)
	}

	fileLock := s.lock()
	if err := fileLock.RLock(); err != nil {
		return "", false, fmt.Errorf("acquire read lock: %w", err)
	}
	defer func() { _ = fileLock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read credential: %w", err)
	}

	key := strings.TrimSpace(string(data))
	return key, key != "", nil
}

// Save writes key, replacing any previous value. The write goes to a temp
// file renamed into place so a crash never leaves a half-written key.
func (s *FileStore) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmpty
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	fileLock := s.lock()
	if err := fileLock.Lock(); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	defer func() { _ = fileLock.Unlock() }()

	tmp, err := os.CreateTemp(dir, ".api_key-*")
	if err != nil {
		return fmt.Errorf("create temp credential: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod credential: %w", err)
	}
	if _, err := tmp.WriteString(key + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// Clear removes the stored key. Clearing an absent key is not an error.
func (s *FileStore) Clear() error {
	fileLock := s.lock()
	if err := fileLock.Lock(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("acquire write lock: %w", err)
	}
	defer func() { _ = fileLock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// MemoryStore keeps the key in memory only.
type MemoryStore struct {
	mu  sync.Mutex
	key string
}

// NewMemoryStore returns a store seeded with key (may be empty).
func NewMemoryStore(key string) *MemoryStore {
	return &MemoryStore{key: strings.TrimSpace(key)}
}

func (m *MemoryStore) Load() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key, m.key != "", nil
}

func (m *MemoryStore) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmpty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = ""
	return nil
}

// EnvOverride wraps a Store so a non-empty environment value wins on Load.
// Save and Clear still reach the wrapped store.
type EnvOverride struct {
	Store
	Value string
}

func (e EnvOverride) Load() (string, bool, error) {
	if v := strings.TrimSpace(e.Value); v != "" {
		return v, true, nil
	}
	return e.Store.Load()
}

// Mask renders a key for display, keeping only the last four characters.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
