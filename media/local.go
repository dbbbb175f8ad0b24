package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes files into a dated directory tree under the static root
// and serves them back through the configured public base URL.
type LocalStore struct {
	rootDir string
	baseURL string
}

func NewLocalStore(rootDir, baseURL string) (*LocalStore, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("media local dir not configured")
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{rootDir: rootDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Store(ctx context.Context, localPath, fileName, contentType string) (*StoredMedia, error) {
	now := time.Now()
	rel := filepath.Join(now.Format("2006"), now.Format("01"), now.Format("02"))
	dir := filepath.Join(s.rootDir, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	name := uniqueName(fileName)
	dst := filepath.Join(dir, name)

	src, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return nil, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return nil, err
	}

	url := s.baseURL + "/" + filepath.ToSlash(filepath.Join(rel, name))
	return &StoredMedia{URL: url, Name: name}, nil
}
