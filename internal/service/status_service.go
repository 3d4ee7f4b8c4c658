package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fibre-tracker/internal/models"
)

// ErrInvalidState is returned for state codes outside models.States.
var ErrInvalidState = errors.New("service: invalid state")

// ResultLookup reads one stored result collection.
type ResultLookup interface {
	Read(suburb, state string) (*models.FeatureCollection, error)
}

// SuburbStatus is the public view of a registry entry.
type SuburbStatus struct {
	Name          string     `json:"name"`
	Announced     bool       `json:"announced"`
	AnnouncedDate *time.Time `json:"announced_date"`
	ProcessedDate *time.Time `json:"processed_date"`
	AddressCount  int        `json:"address_count"`
}

// StatusService answers read-only questions about tracking progress.
type StatusService struct {
	registry RegistrySource
	results  ResultLookup
}

func NewStatusService(registry RegistrySource, results ResultLookup) *StatusService {
	return &StatusService{registry: registry, results: results}
}

// Progress computes the suburb and address progress from the current registry.
func (s *StatusService) Progress(ctx context.Context) (models.ProgressReport, error) {
	reg, err := s.registry.Load()
	if err != nil {
		return models.ProgressReport{}, fmt.Errorf("service: failed to load registry: %w", err)
	}
	return ProgressReport(reg), nil
}

// Suburbs lists a state's suburbs ordered by name.
func (s *StatusService) Suburbs(ctx context.Context, state string) ([]SuburbStatus, error) {
	state, err := validState(state)
	if err != nil {
		return nil, err
	}
	reg, err := s.registry.Load()
	if err != nil {
		return nil, fmt.Errorf("service: failed to load registry: %w", err)
	}

	suburbs := reg.Suburbs(state)
	out := make([]SuburbStatus, 0, len(suburbs))
	for _, sub := range suburbs {
		out = append(out, SuburbStatus{
			Name:          sub.Name,
			Announced:     sub.Announced(),
			AnnouncedDate: sub.AnnouncedDate,
			ProcessedDate: sub.ProcessedDate,
			AddressCount:  sub.AddressCount,
		})
	}
	return out, nil
}

// Result returns a suburb's stored result collection, or models.ErrNotFound.
func (s *StatusService) Result(ctx context.Context, suburb, state string) (*models.FeatureCollection, error) {
	state, err := validState(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(suburb) == "" {
		return nil, fmt.Errorf("service: suburb cannot be empty: %w", models.ErrNotFound)
	}

	fc, err := s.results.Read(suburb, state)
	if err != nil {
		return nil, fmt.Errorf("service: failed to read result: %w", err)
	}
	return fc, nil
}

func validState(state string) (string, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if _, ok := stateCodes[state]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	return state, nil
}

var stateCodes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(models.States))
	for _, s := range models.States {
		m[s] = struct{}{}
	}
	return m
}()
