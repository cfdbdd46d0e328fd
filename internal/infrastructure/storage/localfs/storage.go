package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage keeps uploaded recordings on the local filesystem under a single
// flat directory. Keys are opaque names produced at submission time; anything
// resembling a path is flattened so a key can never escape the base dir.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/recordings"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	f, err := os.Create(s.Path(key))
	if err != nil {
		return fmt.Errorf("create recording file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write recording file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("open recording file: %w", err)
	}
	return f, nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	if err := os.Remove(s.Path(key)); err != nil {
		return fmt.Errorf("remove recording file: %w", err)
	}
	return nil
}

// Path resolves a key to an absolute-or-relative on-disk location for tools
// that need a real file, such as ffmpeg.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, flatten(key))
}

func flatten(key string) string {
	key = filepath.Base(filepath.Clean(key))
	if key == "." || key == string(filepath.Separator) || strings.TrimSpace(key) == "" {
		return "recording.bin"
	}
	return key
}
