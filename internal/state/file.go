package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// FileStore keeps the snapshot in a two-space indented JSON file.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger.Named("state")}, nil
}

// Load reads the snapshot. A missing file is created empty; a malformed file
// is logged and treated as empty so the next Save overwrites it.
func (s *FileStore) Load(ctx context.Context) (*monitor.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("state file missing, creating", zap.String("path", s.path))
		empty := monitor.NewSnapshot()
		if err := s.write(ctx, empty); err != nil {
			return nil, err
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	snapshot, err := decode(data)
	if err != nil {
		s.logger.Warn("state file is malformed, starting empty", zap.String("path", s.path), zap.Error(err))
		return snapshot, nil
	}
	return snapshot, nil
}

// Save replaces the file atomically with the encoded snapshot.
func (s *FileStore) Save(ctx context.Context, snapshot *monitor.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, snapshot)
}

func (s *FileStore) write(ctx context.Context, snapshot *monitor.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	data, err := encode(snapshot)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
