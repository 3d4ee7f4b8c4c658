package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"fibre-tracker/internal/models"
)

const (
	registryFile = "combined-suburbs.json"
	progressFile = "progress.json"
)

// ErrStaleRegistry is returned when saving a registry snapshot whose version no longer matches
// the one stored on disk.
var ErrStaleRegistry = errors.New("repository: registry changed since it was loaded")

// RegistryStore persists the suburb registry as a single JSON snapshot, plus the derived
// progress report next to it.
type RegistryStore struct {
	dir string
	mu  sync.Mutex
}

func NewRegistryStore(dir string) *RegistryStore {
	return &RegistryStore{dir: dir}
}

func (s *RegistryStore) Path() string {
	return filepath.Join(s.dir, registryFile)
}

func (s *RegistryStore) ProgressPath() string {
	return filepath.Join(s.dir, progressFile)
}

// Load reads the current snapshot, including its stored Version.
func (s *RegistryStore) Load() (*models.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *RegistryStore) load() (*models.Registry, error) {
	reg := models.NewRegistry()
	if err := readJSON(s.Path(), reg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("repository: registry %s: %w", s.Path(), models.ErrNotFound)
		}
		return nil, err
	}
	return reg, nil
}

// Save replaces the snapshot on disk and increments its Version. A registry with a non-zero
// Version must match the version stored in the file; a zero Version creates or overwrites
// unconditionally.
func (s *RegistryStore) Save(reg *models.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(reg)
}

func (s *RegistryStore) save(reg *models.Registry) error {
	current, err := s.version()
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if reg.Version != 0 && current != reg.Version {
		return ErrStaleRegistry
	}

	next := reg.Clone()
	next.Version = current + 1
	if err := writeJSONAtomic(s.Path(), next, "    "); err != nil {
		return err
	}
	reg.Version = next.Version
	return nil
}

// Update performs one read-modify-write cycle of the whole snapshot and returns the
// snapshot that was written.
func (s *RegistryStore) Update(fn func(*models.Registry) error) (*models.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		return nil, err
	}
	if err := s.save(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// version reads only the stored version of the snapshot on disk.
func (s *RegistryStore) version() (int64, error) {
	var head struct {
		Version int64 `json:"version"`
	}
	if err := readJSON(s.Path(), &head); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("repository: registry %s: %w", s.Path(), models.ErrNotFound)
		}
		return 0, err
	}
	return head.Version, nil
}

// SaveProgress writes the progress report.
func (s *RegistryStore) SaveProgress(report models.ProgressReport) error {
	return writeJSONAtomic(s.ProgressPath(), report, "    ")
}

// LoadProgress reads the last progress report written by SaveProgress.
func (s *RegistryStore) LoadProgress() (*models.ProgressReport, error) {
	var report models.ProgressReport
	if err := readJSON(s.ProgressPath(), &report); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("repository: progress %s: %w", s.ProgressPath(), models.ErrNotFound)
		}
		return nil, err
	}
	return &report, nil
}
