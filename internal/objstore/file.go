package objstore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// PublicPrefix is the route the service mounts for the file driver.
const PublicPrefix = "/uploads/"

// FileStore keeps objects on local disk; Open serves them back.
type FileStore struct {
	base   string
	public string
}

func OpenFile(_ context.Context, c Config) (*FileStore, error) {
	if c.BaseDir == "" {
		return nil, errors.New("base_dir required for file driver")
	}
	if err := os.MkdirAll(c.BaseDir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{base: c.BaseDir, public: c.PublicBaseURL}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.base, filepath.FromSlash(sanitizeKey(key)))
}

func (s *FileStore) Put(_ context.Context, key string, r io.ReadSeeker, _ int64, _ string) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// URL is relative to the service unless a public base URL is configured.
func (s *FileStore) URL(_ context.Context, key string) (string, error) {
	key = sanitizeKey(key)
	if u := publicURL(s.public, key); u != "" {
		return u, nil
	}
	return (&url.URL{Path: PublicPrefix + key}).String(), nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	return os.Remove(s.path(key))
}

// Open returns the stored object for key.
func (s *FileStore) Open(key string) (*os.File, error) {
	key = sanitizeKey(key)
	if key == "" {
		return nil, os.ErrNotExist
	}
	return os.Open(s.path(key))
}
