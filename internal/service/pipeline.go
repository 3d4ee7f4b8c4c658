package service

import (
	"context"
	"sync"

	"fibre-tracker/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// ChunkSize is the number of addresses handed to a worker at once.
	ChunkSize = 200
	// SubBatchSize is how many addresses a worker enriches between progress updates.
	SubBatchSize = 20

	DefaultWorkers = 10
	MaxWorkers     = 40
)

// AddressEnricher enriches one address.
type AddressEnricher interface {
	Enrich(ctx context.Context, addr models.Address) Result
}

// ProgressFunc observes the shared counter after each sub-batch.
type ProgressFunc func(done, total int)

// Tally summarises one EnrichAll run.
type Tally struct {
	Outcomes  map[Outcome]int
	Tech      map[string]int
	Locations map[string]int
}

func newTally() Tally {
	return Tally{
		Outcomes:  map[Outcome]int{},
		Tech:      map[string]int{},
		Locations: map[string]int{},
	}
}

// Pipeline fans addresses out over a bounded pool of workers.
type Pipeline struct {
	newEnricher func() AddressEnricher
	workers     int
	progress    ProgressFunc
}

// NewPipeline builds a pipeline; newEnricher is called once per chunk so each worker gets its
// own client. workers is clamped to 1..MaxWorkers, with 0 meaning DefaultWorkers.
func NewPipeline(newEnricher func() AddressEnricher, workers int, progress ProgressFunc) *Pipeline {
	switch {
	case workers == 0:
		workers = DefaultWorkers
	case workers < 1:
		workers = 1
	case workers > MaxWorkers:
		workers = MaxWorkers
	}
	return &Pipeline{newEnricher: newEnricher, workers: workers, progress: progress}
}

func (p *Pipeline) Workers() int {
	return p.workers
}

// EnrichAll returns a copy of addresses with location ids and statuses filled in where
// possible. The output has the input's length and order; failures are logged per address and
// never abort the batch.
func (p *Pipeline) EnrichAll(ctx context.Context, addresses []models.Address) ([]models.Address, Tally) {
	out := make([]models.Address, len(addresses))
	outcomes := make([]Outcome, len(addresses))
	total := len(addresses)

	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(p.workers)
	for start := 0; start < total; start += ChunkSize {
		end := min(start+ChunkSize, total)
		g.Go(func() error {
			enricher := p.newEnricher()
			for batch := start; batch < end; batch += SubBatchSize {
				batchEnd := min(batch+SubBatchSize, end)
				for i := batch; i < batchEnd; i++ {
					res := enricher.Enrich(ctx, addresses[i])
					logResult(res)
					out[i] = res.Address
					outcomes[i] = res.Outcome
				}

				mu.Lock()
				done += batchEnd - batch
				current := done
				if p.progress != nil {
					p.progress(current, total)
				}
				mu.Unlock()
				log.Debug().Int("done", current).Int("total", total).Msg("enrichment progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	tally := newTally()
	for i, a := range out {
		tally.Outcomes[outcomes[i]]++
		tally.Tech[a.Tech]++
		tally.Locations[models.LocationKind(a.LocationID)]++
	}
	return out, tally
}

func logResult(res Result) {
	switch res.Outcome {
	case OutcomeNoData:
		log.Debug().Str("address", res.Address.Name).Str("loc_id", res.Address.LocationID).Msg("no status available")
	case OutcomeTransient:
		log.Warn().Err(res.Err).Str("address", res.Address.Name).Msg("error fetching NBN data")
	case OutcomeFailed:
		log.Error().Err(res.Err).Str("address", res.Address.Name).Str("gnaf_pid", res.Address.GnafPID).Msg("enrichment failed")
	}
}
