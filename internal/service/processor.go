package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"fibre-tracker/internal/models"

	"github.com/rs/zerolog/log"
)

// AddressSource returns the known addresses of one suburb.
type AddressSource interface {
	GetAddresses(ctx context.Context, suburb, state string) ([]models.Address, error)
}

// ResultStore reads and writes per-suburb result collections.
type ResultStore interface {
	Read(suburb, state string) (*models.FeatureCollection, error)
	Write(suburb, state string, fc models.FeatureCollection) error
}

// WarmCache is the part of the status cache the processor drives directly.
type WarmCache interface {
	WarmStart(ctx context.Context, previous *models.FeatureCollection, now time.Time) (int, error)
	Stats() (hits, misses int64)
}

// SuburbSelector yields the suburbs to work on.
type SuburbSelector interface {
	Select(ctx context.Context, target *models.Target) (iter.Seq[models.Target], error)
}

// BatchEnricher enriches a whole suburb's addresses.
type BatchEnricher interface {
	EnrichAll(ctx context.Context, addresses []models.Address) ([]models.Address, Tally)
}

// ProcessedMarker records completed suburbs.
type ProcessedMarker interface {
	MarkProcessed(ctx context.Context, state, suburb string, generated time.Time, addressCount int) error
}

// Processor runs suburbs end to end: fetch, enrich, write, record.
type Processor struct {
	scheduler SuburbSelector
	addresses AddressSource
	results   ResultStore
	cache     WarmCache
	pipeline  BatchEnricher
	registry  ProcessedMarker
	budget    time.Duration
	now       func() time.Time
}

type ProcessorDeps struct {
	Scheduler SuburbSelector
	Addresses AddressSource
	Results   ResultStore
	Cache     WarmCache
	Pipeline  BatchEnricher
	Registry  ProcessedMarker
}

// NewProcessor builds a Processor. A positive budget stops it from starting new suburbs once
// that much time has passed; a suburb already started always finishes.
func NewProcessor(deps ProcessorDeps, budget time.Duration) *Processor {
	return &Processor{
		scheduler: deps.Scheduler,
		addresses: deps.Addresses,
		results:   deps.Results,
		cache:     deps.Cache,
		pipeline:  deps.Pipeline,
		registry:  deps.Registry,
		budget:    budget,
		now:       time.Now,
	}
}

// Run processes the target, or every scheduled suburb until the schedule or the budget runs
// out. It returns how many suburbs were processed.
func (p *Processor) Run(ctx context.Context, target *models.Target) (int, error) {
	start := p.now()
	suburbs, err := p.scheduler.Select(ctx, target)
	if err != nil {
		return 0, err
	}

	processed := 0
	for t := range suburbs {
		if p.budget > 0 && p.now().Sub(start) > p.budget {
			log.Info().Dur("budget", p.budget).Int("processed", processed).Msg("run budget exhausted")
			break
		}
		if err := p.ProcessSuburb(ctx, t); err != nil {
			return processed, err
		}
		processed++
	}
	if err := ctx.Err(); err != nil {
		return processed, err
	}
	return processed, nil
}

// ProcessSuburb enriches every address of one suburb and records the result. It fails with
// models.ErrNotFound when the address source knows no addresses for the suburb. Once started
// it runs to completion even if ctx is cancelled.
func (p *Processor) ProcessSuburb(ctx context.Context, t models.Target) error {
	ctx = context.WithoutCancel(ctx)
	logger := log.With().Str("suburb", t.Suburb).Str("state", t.State).Logger()

	logger.Info().Msg("fetching all addresses")
	addresses, err := p.addresses.GetAddresses(ctx, t.Suburb, t.State)
	if err != nil {
		return fmt.Errorf("service: addresses for %s: %w", t, err)
	}
	if len(addresses) == 0 {
		return fmt.Errorf("service: no addresses for %s: %w", t, models.ErrNotFound)
	}
	sort.SliceStable(addresses, func(i, j int) bool { return addresses[i].Name < addresses[j].Name })
	logger.Info().Int("addresses", len(addresses)).Msg("fetched addresses from database")

	previous, err := p.results.Read(t.Suburb, t.State)
	switch {
	case err == nil:
		loaded, err := p.cache.WarmStart(ctx, previous, p.now())
		if err != nil {
			logger.Warn().Err(err).Msg("warm start failed")
		} else if loaded > 0 {
			logger.Info().Int("locations", loaded).Msg("warm-started cache from previous result")
		}
	case !errors.Is(err, models.ErrNotFound):
		logger.Warn().Err(err).Msg("could not read previous result")
	}

	enriched, tally := p.pipeline.EnrichAll(ctx, addresses)

	outcomes := make(map[string]int, len(tally.Outcomes))
	for o, n := range tally.Outcomes {
		outcomes[o.String()] = n
	}
	hits, misses := p.cache.Stats()
	logger.Info().
		Interface("tech", tally.Tech).
		Interface("location_types", tally.Locations).
		Interface("outcomes", outcomes).
		Int64("cache_hits", hits).
		Int64("cache_misses", misses).
		Msg("completed")

	unique := models.RemoveDuplicateLocations(enriched)
	if dropped := len(enriched) - len(unique); dropped > 0 {
		logger.Info().Int("dropped", dropped).Msg("removed duplicate locations")
	}

	generated := p.now().UTC()
	if err := p.results.Write(t.Suburb, t.State, models.NewFeatureCollection(t.Suburb, unique, generated)); err != nil {
		return fmt.Errorf("service: write result for %s: %w", t, err)
	}
	return p.registry.MarkProcessed(ctx, t.State, t.Suburb, generated, len(addresses))
}
