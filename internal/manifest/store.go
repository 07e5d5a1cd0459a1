package manifest

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Store loads and persists manifest documents on a filesystem.
type Store struct {
	fs afero.Fs
}

// NewStore creates a store backed by fs.
func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewOsStore creates a store on the real filesystem.
func NewOsStore() *Store {
	return NewStore(afero.NewOsFs())
}

// Load reads the manifest at path.
func (s *Store) Load(path string) (*Document, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(string(data)), nil
}

// Save overwrites the manifest at path, keeping its permissions.
// The write is a plain overwrite, not an atomic replace.
func (s *Store) Save(path string, doc *Document) error {
	perm := os.FileMode(0644)
	if info, err := s.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := afero.WriteFile(s.fs, path, []byte(doc.String()), perm); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
