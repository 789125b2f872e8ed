package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"soundcast/internal/domain"
)

// fileStore persists the catalog as a JSON snapshot file.
type fileStore struct {
	path string
}

func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (f *fileStore) Load() ([]domain.Sound, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return []domain.Sound{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	var sounds []domain.Sound
	if err := json.Unmarshal(data, &sounds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return sounds, nil
}

// Save writes to a temp file first so a crash mid-write cannot truncate
// the previous snapshot.
func (f *fileStore) Save(sounds []domain.Sound) error {
	data, err := json.MarshalIndent(sounds, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
