package service

import (
	"context"
	"fmt"
	"time"

	"fibre-tracker/internal/models"

	"github.com/rs/zerolog/log"
)

// RegistryWriter persists whole registry snapshots.
type RegistryWriter interface {
	Update(fn func(*models.Registry) error) (*models.Registry, error)
	SaveProgress(report models.ProgressReport) error
}

// RegistryUpdater is the only writer of the registry during processing.
type RegistryUpdater struct {
	store RegistryWriter
}

func NewRegistryUpdater(store RegistryWriter) *RegistryUpdater {
	return &RegistryUpdater{store: store}
}

// MarkProcessed records that suburb's result was generated at generated, refreshes its
// address count when positive, and rewrites the progress file. It returns once both are on
// disk.
func (u *RegistryUpdater) MarkProcessed(ctx context.Context, state, suburb string, generated time.Time, addressCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reg, err := u.store.Update(func(reg *models.Registry) error {
		return reg.Update(state, suburb, func(s *models.Suburb) {
			processed := generated.UTC()
			s.ProcessedDate = &processed
			if addressCount > 0 {
				s.AddressCount = addressCount
			}
		})
	})
	if err != nil {
		return fmt.Errorf("service: mark %s, %s processed: %w", suburb, state, err)
	}

	if err := u.store.SaveProgress(ProgressReport(reg)); err != nil {
		return fmt.Errorf("service: save progress: %w", err)
	}
	log.Info().Str("suburb", suburb).Str("state", state).Time("generated", generated).Msg("registry updated")
	return nil
}
