package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const fileExt = ".json"

type fileStore struct {
	root string
}

// NewFileStore creates a Store that keeps one JSON document per transcript
// under root. Writes go through a temp file and rename so readers never see
// a partial transcript.
func NewFileStore(root string) Store {
	return &fileStore{root: root}
}

func (s *fileStore) path(id string) string {
	return filepath.Join(s.root, id+fileExt)
}

func (s *fileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *fileStore) Load(_ context.Context, id string) (*Transcript, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, id, err)
	}
	return &t, nil
}

func (s *fileStore) Save(ctx context.Context, t *Transcript) error {
	if err := validateID(t.ID); err != nil {
		return err
	}

	if t.CreatedAt.IsZero() {
		if existing, err := s.Load(ctx, t.ID); err == nil {
			t.CreatedAt = existing.CreatedAt
		}
	}
	touch(t)

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}

	if err := os.Rename(tmpName, s.path(t.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, t.ID, err)
	}
	return nil
}

func (s *fileStore) Delete(_ context.Context, ids ...string) error {
	for _, id := range ids {
		if err := validateID(id); err != nil {
			return err
		}
		if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete failed: %s: %w", id, err)
		}
	}
	return nil
}
