package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bhandras/avatarctl/internal/logger"
	"gopkg.in/yaml.v3"
)

// Format selects the on-disk encoding of a FileStore.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FileStore keeps the snapshot in a single JSON or YAML file.
type FileStore struct {
	path   string
	format Format
}

// NewFileStore creates a file-backed store. The file is not touched until
// Load or Save is called.
func NewFileStore(path string, format Format) *FileStore {
	return &FileStore{path: path, format: format}
}

// Path implements Store.
func (s *FileStore) Path() string { return s.path }

// Load implements Store. Fields missing from the file keep their defaults.
func (s *FileStore) Load() Snapshot {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("[settings] read %s failed, using defaults: %v", s.path, err)
		}
		return Defaults()
	}

	cfg := Defaults()
	if err := s.unmarshal(raw, &cfg); err != nil {
		logger.Warnf("[settings] %s parse failed, using defaults: %v", s.path, err)
		return Defaults()
	}
	return cfg
}

// Save implements Store. The file is replaced atomically via rename.
func (s *FileStore) Save(cfg Snapshot) error {
	raw, err := s.marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}

	logger.Infof("[settings] saved: %s", s.path)
	return nil
}

func (s *FileStore) marshal(cfg Snapshot) ([]byte, error) {
	if s.format == FormatYAML {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

func (s *FileStore) unmarshal(raw []byte, cfg *Snapshot) error {
	if s.format == FormatYAML {
		return yaml.Unmarshal(raw, cfg)
	}
	return json.Unmarshal(raw, cfg)
}
