package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NameKey is the storage key of the persisted display name.
const NameKey = "easywine_user_name"

// ErrNameTooShort is returned when a display name has fewer than two characters.
var ErrNameTooShort = errors.New("name must have at least 2 characters")

// NameStore persists the display name on the user's machine.
type NameStore interface {
	Load() (string, error)
	Save(name string) error
	Clear() error
}

// FileNameStore keeps the name in a small JSON key-value file.
type FileNameStore struct {
	path string
}

// NewFileNameStore creates a store backed by the file at path.
func NewFileNameStore(path string) *FileNameStore {
	return &FileNameStore{path: path}
}

// DefaultNamePath returns the store location under the user config dir.
func DefaultNamePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "easywine", "storage.json"), nil
}

func (s *FileNameStore) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return values, nil
}

func (s *FileNameStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load returns the stored name, or "" when none is stored.
func (s *FileNameStore) Load() (string, error) {
	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[NameKey], nil
}

// Save stores the name.
func (s *FileNameStore) Save(name string) error {
	values, err := s.read()
	if err != nil {
		return err
	}
	values[NameKey] = name
	return s.write(values)
}

// Clear removes the name.
func (s *FileNameStore) Clear() error {
	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[NameKey]; !ok {
		return nil
	}
	delete(values, NameKey)
	return s.write(values)
}

// Session holds the display name. It is loaded once when created and only
// changes through SignIn and SignOut.
type Session struct {
	mu    sync.RWMutex
	store NameStore
	name  string
}

// NewSession loads the persisted name from store.
func NewSession(store NameStore) (*Session, error) {
	name, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load display name: %w", err)
	}
	return &Session{store: store, name: name}, nil
}

// Name returns the current display name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SignedIn reports whether a display name is set.
func (s *Session) SignedIn() bool {
	return s.Name() != ""
}

// SignIn validates and persists name.
func (s *Session) SignIn(name string) error {
	if len([]rune(strings.TrimSpace(name))) < 2 {
		return ErrNameTooShort
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(name); err != nil {
		return fmt.Errorf("failed to save display name: %w", err)
	}
	s.name = name
	return nil
}

// SignOut forgets the display name.
func (s *Session) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear display name: %w", err)
	}
	s.name = ""
	return nil
}
