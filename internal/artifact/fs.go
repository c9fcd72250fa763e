package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore writes artifacts to a local directory. The default for dev and
// single-node deployments.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(_ context.Context, name, _ string, body io.Reader) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact %q: %w", name, err)
	}
	if _, err := io.Copy(file, body); err != nil {
		_ = file.Close()
		return fmt.Errorf("write artifact %q: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close artifact %q: %w", name, err)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("open artifact %q: %w", name, err)
	}
	return file, nil
}

// resolve rejects names that would escape the artifact directory.
func (s *FSStore) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact name: %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
