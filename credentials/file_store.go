package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var _ Store = (*FileStore)(nil)

// FileStore persists the credential pair as a small JSON document, surviving
// process restarts. Writes go through a temp file and rename so the two keys
// always change together.
type FileStore struct {
	path   string
	lock   sync.Mutex
	loaded bool
	values map[string]string
}

// NewFileStore creates a FileStore persisting to path. The file and any
// missing parent directories are created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		values: make(map[string]string),
	}
}

func (s *FileStore) Access() (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.load()
	token, ok := s.values[AccessKey]
	return token, ok && token != ""
}

func (s *FileStore) Refresh() (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.load()
	token, ok := s.values[RefreshKey]
	return token, ok && token != ""
}

func (s *FileStore) SetPair(access, refresh string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.load()
	s.values[AccessKey] = access
	s.values[RefreshKey] = refresh
	return s.persist()
}

func (s *FileStore) SetAccess(access string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.load()
	s.values[AccessKey] = access
	return s.persist()
}

func (s *FileStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values = make(map[string]string)
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("[FileStore.Clear] remove %s: %w", s.path, err)
	}
	return nil
}

// load reads the file once; a missing or unreadable file is treated as an
// empty store, not an error.
func (s *FileStore) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return
	}
	s.values = values
}

func (s *FileStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("[FileStore.persist] mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore.persist] marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("[FileStore.persist] write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("[FileStore.persist] rename: %w", err)
	}
	return nil
}
