package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
	"pixivdl/pkg/storage"
)

const (
	// FileName is the name of the update descriptor inside a download directory
	FileName = ".pixiv_update"

	// Version is the descriptor format written by this build
	Version = 1
)

// ErrIndividualSource is returned when saving a descriptor for an Individual
// source, which has nothing new to fetch on a later run
var ErrIndividualSource = errors.New("cannot create an update file for individual works")

// UpdateFile records how a directory was populated so that it can be refreshed later
type UpdateFile struct {
	Version   int              `json:"version"`
	Source    models.Source    `json:"source"`
	DirPolicy models.DirPolicy `json:"dir_policy"`
	CreatedAt time.Time        `json:"created_at"`
}

// Manager handles the update descriptor of one directory
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager for dir/.pixiv_update
func NewManager(dir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		path:   filepath.Join(dir, FileName),
		logger: log,
	}
}

// Path returns the descriptor path
func (m *Manager) Path() string {
	return m.path
}

// Save writes the descriptor atomically
func (m *Manager) Save(src models.Source, policy models.DirPolicy) error {
	if src.Kind == models.SourceIndividual {
		return ErrIndividualSource
	}
	if err := src.Validate(); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}

	uf := UpdateFile{
		Version:   Version,
		Source:    src,
		DirPolicy: policy,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(uf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode update file: %w", err)
	}

	if err := storage.WriteFileAtomic(m.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write update file: %w", err)
	}

	m.logger.DebugWithFields("update file saved", map[string]interface{}{
		"path":   m.path,
		"source": src.String(),
	})
	return nil
}

// Load reads the descriptor. A missing file returns nil, nil.
func (m *Manager) Load() (*UpdateFile, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read update file: %w", err)
	}

	var uf UpdateFile
	if err := json.Unmarshal(data, &uf); err != nil {
		return nil, fmt.Errorf("failed to decode update file %s: %w", m.path, err)
	}
	if uf.Version > Version {
		return nil, fmt.Errorf("update file %s has version %d, this build understands up to %d", m.path, uf.Version, Version)
	}
	if err := uf.Source.Validate(); err != nil {
		return nil, fmt.Errorf("update file %s: %w", m.path, err)
	}
	if uf.DirPolicy == "" {
		uf.DirPolicy = models.DirPolicyAlways
	}

	m.logger.DebugWithFields("update file loaded", map[string]interface{}{
		"path":       m.path,
		"source":     uf.Source.String(),
		"created_at": uf.CreatedAt,
	})
	return &uf, nil
}

// Exists checks if the descriptor exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Delete removes the descriptor
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete update file: %w", err)
	}
	return nil
}
