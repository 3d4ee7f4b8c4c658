package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fibre-tracker/internal/announce"
	"fibre-tracker/internal/models"
	"fibre-tracker/internal/repository"

	"github.com/rs/zerolog/log"
)

// SuburbCounter reports how many addresses the source holds per state and locality.
type SuburbCounter interface {
	GetCountsBySuburb(ctx context.Context) (repository.SuburbCounts, error)
}

// AnnouncementSource lists suburbs announced for upgrade.
type AnnouncementSource interface {
	Fetch(ctx context.Context) ([]announce.Announcement, error)
}

// GeneratedReader returns when a suburb's stored result collection was generated.
type GeneratedReader interface {
	Generated(suburb, state string) (time.Time, error)
}

// RegistryBuilder assembles a registry from scratch.
type RegistryBuilder struct {
	counts    SuburbCounter
	announced AnnouncementSource
	results   GeneratedReader
	now       func() time.Time
}

func NewRegistryBuilder(counts SuburbCounter, announced AnnouncementSource, results GeneratedReader) *RegistryBuilder {
	return &RegistryBuilder{counts: counts, announced: announced, results: results, now: time.Now}
}

// Build lists every locality in the address source with its address count, its announced
// date and the generated time of any stored result. Announced suburbs the page gives no date
// for are stamped with the time of the build.
func (b *RegistryBuilder) Build(ctx context.Context) (*models.Registry, error) {
	counts, err := b.counts.GetCountsBySuburb(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: count suburbs: %w", err)
	}
	announcements, err := b.announced.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: fetch announcements: %w", err)
	}

	scraped := b.now().UTC()
	dates := make(map[models.Target]time.Time, len(announcements))
	for _, a := range announcements {
		date := scraped
		if a.Date != nil {
			date = *a.Date
		} else {
			log.Warn().Str("suburb", a.Suburb).Str("state", a.State).Msg("announced without a date")
		}
		dates[models.Target{Suburb: models.InternalName(a.Suburb), State: a.State}] = date
	}

	reg := models.NewRegistry()
	for state, localities := range counts {
		for locality, count := range localities {
			s := models.Suburb{Name: models.DisplayName(locality), AddressCount: count}
			k := models.Target{Suburb: models.InternalName(locality), State: state}
			if date, ok := dates[k]; ok {
				s.AnnouncedDate = &date
				delete(dates, k)
			}
			generated, err := b.results.Generated(s.Name, state)
			switch {
			case err == nil:
				s.ProcessedDate = &generated
			case !errors.Is(err, models.ErrNotFound):
				return nil, fmt.Errorf("service: result for %s, %s: %w", s.Name, state, err)
			}
			reg.Put(state, s)
		}
	}

	for k := range dates {
		log.Warn().Str("suburb", k.Suburb).Str("state", k.State).Msg("announced suburb not found in address source")
	}
	log.Info().Int("suburbs", reg.Len()).Int("announced", len(announcements)).Msg("registry rebuilt")
	return reg, nil
}
