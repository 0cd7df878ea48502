package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// LocalProvider stores objects on the local filesystem. Objects are served
// back by the HTTP layer under publicPrefix, so URL is a pure
// key-to-prefix transform.
type LocalProvider struct {
	baseDir      string
	publicPrefix string
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(dir, publicPrefix string) (*LocalProvider, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}
	if err := os.MkdirAll(baseDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", baseDir, err)
	}

	return &LocalProvider{baseDir: baseDir, publicPrefix: publicPrefix}, nil
}

// Root returns the absolute storage directory, used to mount the static
// file server.
func (p *LocalProvider) Root() string {
	return p.baseDir
}

func (p *LocalProvider) fullpath(key string) string {
	return filepath.Join(p.baseDir, filepath.FromSlash(key))
}

func (p *LocalProvider) PutObject(ctx context.Context, key string, data io.Reader) error {
	fullPath := p.fullpath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", key, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, data); err != nil {
		return fmt.Errorf("failed to write file %s: %w", key, err)
	}
	return nil
}

func (p *LocalProvider) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(p.fullpath(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", key, err)
	}
	return data, nil
}

func (p *LocalProvider) URL(key string) string {
	return p.publicPrefix + "/" + path.Clean(key)
}
