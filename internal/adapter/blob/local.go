package blob

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// NewDirSource reads blobs from a directory laid out like the bucket.
func NewDirSource(root string, logger *slog.Logger) Source {
	return &prefixSource{store: dirStore{root: root}, logger: logger}
}

type dirStore struct {
	root string
}

func (d dirStore) list(_ context.Context, prefix string) ([]string, error) {
	dir := filepath.Join(d.root, filepath.FromSlash(prefix))
	var names []string
	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return names, err
}

func (d dirStore) read(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, filepath.FromSlash(name)))
}
