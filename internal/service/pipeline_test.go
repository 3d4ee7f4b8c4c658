package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"fibre-tracker/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnricher resolves every third address, leaves every third unresolved and fails the
// rest with a transient error after setting the location id.
type fakeEnricher struct {
	mu    *sync.Mutex
	count *int
}

func (f fakeEnricher) Enrich(_ context.Context, addr models.Address) Result {
	f.mu.Lock()
	*f.count++
	f.mu.Unlock()

	var n int
	fmt.Sscanf(addr.GnafPID, "GA%d", &n)
	switch n % 3 {
	case 0:
		addr.LocationID = fmt.Sprintf("LOC%012d", n)
		addr.Tech, addr.Upgrade = "FTTP", models.UnknownUpgrade
		return Result{Address: addr, Outcome: OutcomeEnriched}
	case 1:
		return Result{Address: addr, Outcome: OutcomeNoData}
	default:
		addr.LocationID = fmt.Sprintf("LOC%012d", n)
		return Result{Address: addr, Outcome: OutcomeTransient, Err: assert.AnError}
	}
}

func makeAddresses(n int) []models.Address {
	out := make([]models.Address, n)
	for i := range out {
		out[i] = models.Address{
			Name:      fmt.Sprintf("%d TEST STREET", i),
			GnafPID:   fmt.Sprintf("GA%d", i),
			Longitude: 150 + float64(i)/1000,
			Latitude:  -30 - float64(i)/1000,
		}
	}
	return out
}

func TestPipeline_EnrichAll(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		workers int
	}{
		{name: "empty", count: 0, workers: 10},
		{name: "single sub-batch", count: 7, workers: 10},
		{name: "partial chunk", count: ChunkSize + 13, workers: 3},
		{name: "many chunks one worker", count: 5*ChunkSize + 1, workers: 1},
		{name: "many chunks many workers", count: 1033, workers: MaxWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				mu       sync.Mutex
				calls    int
				progMu   sync.Mutex
				reported []int
			)
			newEnricher := func() AddressEnricher { return fakeEnricher{mu: &mu, count: &calls} }
			progress := func(done, total int) {
				progMu.Lock()
				defer progMu.Unlock()
				assert.Equal(t, tt.count, total)
				reported = append(reported, done)
			}

			input := makeAddresses(tt.count)
			snapshot := slices.Clone(input)

			out, tally := NewPipeline(newEnricher, tt.workers, progress).EnrichAll(context.Background(), input)

			require.Len(t, out, tt.count)
			assert.Equal(t, tt.count, calls)
			assert.Empty(t, cmp.Diff(snapshot, input), "input is not modified")
			for i := range out {
				require.True(t, input[i].SameIdentity(out[i]), "identity changed at %d", i)
				require.Equal(t, out[i].Tech == "", out[i].Upgrade == "", "tech and upgrade must be paired at %d", i)
			}

			if tt.count > 0 {
				require.NotEmpty(t, reported)
				assert.Equal(t, tt.count, reported[len(reported)-1])
			}

			enriched := (tt.count + 2) / 3
			assert.Equal(t, enriched, tally.Outcomes[OutcomeEnriched])
			assert.Equal(t, enriched, tally.Tech["FTTP"])
			assert.Equal(t, tt.count-enriched, tally.Tech[""])
			assert.Equal(t, tt.count-tally.Outcomes[OutcomeNoData], tally.Locations["LOC"])
		})
	}
}

func TestPipeline_ProgressIsSerialised(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	newEnricher := func() AddressEnricher { return fakeEnricher{mu: &mu, count: &calls} }

	last := 0
	progress := func(done, total int) {
		// called under the pipeline's lock, so values strictly increase
		assert.Greater(t, done, last)
		last = done
	}

	NewPipeline(newEnricher, 8, progress).EnrichAll(context.Background(), makeAddresses(3*ChunkSize))
	assert.Equal(t, 3*ChunkSize, last)
}

func TestNewPipeline_Workers(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultWorkers},
		{-3, 1},
		{1, 1},
		{25, 25},
		{100, MaxWorkers},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, NewPipeline(nil, tt.in, nil).Workers())
		})
	}
}
