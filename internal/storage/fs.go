package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSBackend keeps objects on the local filesystem, for dev and tests.
// Keys map to paths under the root; the "bucket" is the root directory name.
type FSBackend struct {
	root string
}

func NewFSBackend(root string) *FSBackend {
	return &FSBackend{root: root}
}

func (f *FSBackend) path(key string) string {
	// keys are forward-slash separated
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *FSBackend) EnsureBucket(_ context.Context) error {
	return os.MkdirAll(f.root, 0o755)
}

func (f *FSBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p := f.path(key)

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	dst, err := os.Create(p)

	if err != nil {
		return err
	}

	_, err = io.Copy(dst, r)

	if cerr := dst.Close(); err == nil {
		err = cerr
	}

	return err
}

func (f *FSBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(f.path(key))
}

func (f *FSBackend) Delete(_ context.Context, key string) error {
	return os.Remove(f.path(key))
}

func (f *FSBackend) Bucket() string {
	return strings.TrimSuffix(filepath.Base(f.root), string(filepath.Separator))
}
