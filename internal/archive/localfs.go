package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalFS stores archived snapshots as files under a base directory.
type LocalFS struct {
	root string
}

// NewLocalFS creates the base directory if needed.
func NewLocalFS(root string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive root: %w", err)
	}
	return &LocalFS{root: root}, nil
}

func (l *LocalFS) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *LocalFS) Put(_ context.Context, key string, data []byte) error {
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	return os.WriteFile(p, data, 0o644)
}

func (l *LocalFS) Get(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(l.path(key))
}

func (l *LocalFS) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(l.path(prefix), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, relErr := filepath.Rel(l.root, p)
			if relErr != nil {
				return relErr
			}
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return keys, err
}

func (l *LocalFS) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (l *LocalFS) Delete(_ context.Context, key string) error {
	return os.Remove(l.path(key))
}
