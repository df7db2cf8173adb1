package rules

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"
)

// Open creates the store selected by config.Backend
func Open(config *Config, logger *zap.Logger) (Store, error) {
	switch config.Backend {
	case "redis":
		return NewRedisStore(config, logger)
	case "file":
		return NewFileStore(config.FilePath, logger), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown rule store backend: %s", config.Backend)
	}
}

// FileStore keeps the rule set in a JSON file, replaced atomically on save
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file backed store at path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the set from disk. A missing file is an empty set.
func (s *FileStore) Load(ctx context.Context) (*Set, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return nil, errors.Errorf("failed to read rules file: %w", err)
	}

	set := Empty()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, errors.Errorf("failed to decode rules file: %w", err)
	}
	if set.Rules == nil {
		set.Rules = []Rule{}
	}
	return set, nil
}

// Save writes the set to a temp file and renames it over the old one
func (s *FileStore) Save(ctx context.Context, set *Set) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.Errorf("failed to marshal rules: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Errorf("failed to create rules directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rules-*.json")
	if err != nil {
		return errors.Errorf("failed to create temp rules file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Errorf("failed to write rules file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("failed to close rules file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Errorf("failed to replace rules file: %w", err)
	}

	s.logger.Debug("Rules saved",
		zap.String("path", s.path),
		zap.Int("count", len(set.Rules)),
		zap.Int64("version", set.Version))

	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// MemoryStore keeps the set in process memory
type MemoryStore struct {
	mu  sync.Mutex
	set *Set
}

func NewMemoryStore(rules ...Rule) *MemoryStore {
	set := Empty()
	set.Rules = append(set.Rules, rules...)
	return &MemoryStore{set: set}
}

func (s *MemoryStore) Load(ctx context.Context) (*Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set, nil
}

func (s *MemoryStore) Save(ctx context.Context, set *Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = set
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
