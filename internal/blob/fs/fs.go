// Package fs stores blobs as files under a root directory. Writes go to a
// temporary file that is fsynced and renamed over the target so readers
// never observe a partially written document.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/raakeshmj/coreenginedb/internal/blob"
)

const tmpSuffix = ".tmp"

type FileStore struct {
	root string
}

func New(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Put ignores contentType; files carry no metadata.
func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}

	tmp := p + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// List walks the deepest directory fully named by prefix and returns keys
// in the lexical order filepath.WalkDir visits them.
func (s *FileStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	dir := s.root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = filepath.Join(s.root, filepath.FromSlash(prefix[:i]))
	}

	var keys []string
	errLimit := errors.New("limit reached")
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, tmpSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := path.Clean(filepath.ToSlash(rel))
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		keys = append(keys, key)
		if limit > 0 && len(keys) >= limit {
			return errLimit
		}
		return ctx.Err()
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

var _ blob.Store = (*FileStore)(nil)
