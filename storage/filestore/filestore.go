// Package filestore implements storage.Store on the local filesystem.
package filestore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rejuve-bio/biograph/errors"
)

// Store persists blobs as files under a root directory. Keys map directly to
// relative file paths; parent directories are created on demand.
type Store struct {
	root string
}

// New creates a filesystem store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "filestore", "New", "root directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "filestore", "New", "create root directory")
	}
	return &Store{root: dir}, nil
}

// Root returns the root directory of the store.
func (s *Store) Root() string { return s.root }

func (s *Store) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "filestore", "path", "key escapes store root: "+key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes data to the file for key, creating parent directories as needed.
// The write goes through a temp file and rename so readers never observe a
// partially written artifact.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "filestore", "Put", "create parent directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return errors.Wrap(err, "filestore", "Put", "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "filestore", "Put", "write data")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "filestore", "Put", "close temp file")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrap(err, "filestore", "Put", "rename into place")
	}
	return nil
}

// Get reads the file for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrap(err, "filestore", "Get", "read "+key)
	}
	return data, nil
}

// Exists reports whether a file exists for key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "filestore", "Exists", "stat "+key)
}

// Delete removes the file for key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "filestore", "Delete", "remove "+key)
	}
	return nil
}

// List walks the store and returns all keys with the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "filestore", "List", "walk store")
	}
	sort.Strings(keys)
	return keys, nil
}
