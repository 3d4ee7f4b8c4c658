package service

import (
	"context"
	"testing"
	"time"

	"fibre-tracker/internal/models"
	"fibre-tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAddressSource struct {
	mock.Mock
}

func (m *MockAddressSource) GetAddresses(ctx context.Context, suburb, state string) ([]models.Address, error) {
	args := m.Called(ctx, suburb, state)
	addresses, _ := args.Get(0).([]models.Address)
	return addresses, args.Error(1)
}

type processorFixture struct {
	*enricherFixture
	addresses *MockAddressSource
	results   *repository.ResultStore
	registry  *repository.RegistryStore
	processor *Processor
}

var (
	ansteadAddresses = []models.Address{
		{Name: "1 XYZ ROAD ABCABC 4070", GnafPID: "GAQLD000000001", Longitude: 152.86, Latitude: -27.56},
		{Name: "1 BLUEGUM RISE ANSTEAD 4070", GnafPID: "GAQLD425035520", Longitude: 152.859, Latitude: -27.563},
	}
	somervilleAddresses = []models.Address{
		{Name: "2 FAKE STREET SOMERVILLE 3912", GnafPID: "GAVIC000000003", Longitude: 145.17, Latitude: -38.225},
		{Name: "2 FAKE STREET SOMERVILLE 3912", GnafPID: "GAVIC000000002", Longitude: 145.17, Latitude: -38.225},
	}
)

func newProcessorFixture(t *testing.T, budget time.Duration) *processorFixture {
	t.Helper()
	f := &processorFixture{
		enricherFixture: newEnricherFixture(t),
		addresses:       new(MockAddressSource),
		results:         repository.NewResultStore(t.TempDir()),
		registry:        repository.NewRegistryStore(t.TempDir()),
	}

	reg := models.NewRegistry()
	reg.Put("QLD", models.Suburb{Name: "Anstead", AddressCount: 2})
	reg.Put("VIC", models.Suburb{Name: "Somerville", AddressCount: 2})
	require.NoError(t, f.registry.Save(reg))

	pipeline := NewPipeline(func() AddressEnricher { return f.enricher() }, 4, nil)
	f.processor = NewProcessor(ProcessorDeps{
		Scheduler: NewScheduler(f.registry, DefaultRefreshDays),
		Addresses: f.addresses,
		Results:   f.results,
		Cache:     f.cache,
		Pipeline:  pipeline,
		Registry:  NewRegistryUpdater(f.registry),
	}, budget)
	f.processor.now = f.clock.Now
	return f
}

func TestProcessor_Run(t *testing.T) {
	f := newProcessorFixture(t, 0)
	f.addresses.On("GetAddresses", mock.Anything, "Anstead", "QLD").Return(ansteadAddresses, nil)
	f.addresses.On("GetAddresses", mock.Anything, "Somerville", "VIC").Return(somervilleAddresses, nil)

	processed, err := f.processor.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	anstead, err := f.results.Read("Anstead", "QLD")
	require.NoError(t, err)
	assert.Equal(t, "Anstead", anstead.Suburb)
	require.Len(t, anstead.Features, 1)
	props := anstead.Features[0].Properties
	assert.Equal(t, "GAQLD425035520", props.GnafPID)
	assert.Equal(t, "LOC000126303452", props.LocationID)
	assert.Equal(t, "FTTN", props.Tech)
	assert.Equal(t, "FTTP_SA", props.Upgrade)

	somerville, err := f.results.Read("Somerville", "VIC")
	require.NoError(t, err)
	require.Len(t, somerville.Features, 1, "duplicate location ids are written once")
	assert.Equal(t, "GAVIC000000003", somerville.Features[0].Properties.GnafPID)

	reg, err := f.registry.Load()
	require.NoError(t, err)
	for _, entry := range reg.All() {
		require.True(t, entry.Suburb.Processed(), entry.Suburb.Name)
		assert.True(t, entry.Suburb.ProcessedDate.Equal(f.clock.now))
	}

	report, err := f.registry.LoadProgress()
	require.NoError(t, err)
	assert.Equal(t, models.Tally{Done: 2, Total: 2, Percent: 100}, report.Suburbs.All[models.TotalKey])
	f.addresses.AssertExpectations(t)
}

func TestProcessor_RunExplicitTarget(t *testing.T) {
	f := newProcessorFixture(t, 0)
	f.addresses.On("GetAddresses", mock.Anything, "Somerville", "VIC").Return(somervilleAddresses, nil)

	target := models.NewTarget("SOMERVILLE", "vic")
	processed, err := f.processor.Run(context.Background(), &target)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	_, err = f.results.Read("Anstead", "QLD")
	assert.ErrorIs(t, err, models.ErrNotFound)
	f.addresses.AssertNotCalled(t, "GetAddresses", mock.Anything, "Anstead", "QLD")

	missing := models.NewTarget("Nowhere", "VIC")
	processed, err = f.processor.Run(context.Background(), &missing)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, processed)
}

func TestProcessor_NoAddresses(t *testing.T) {
	f := newProcessorFixture(t, 0)
	f.addresses.On("GetAddresses", mock.Anything, "Anstead", "QLD").Return([]models.Address{}, nil)

	processed, err := f.processor.Run(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, processed)

	reg, err := f.registry.Load()
	require.NoError(t, err)
	anstead, _ := reg.Get("QLD", "Anstead")
	assert.False(t, anstead.Processed(), "a failed suburb is not marked processed")
}

func TestProcessor_AddressSourceError(t *testing.T) {
	f := newProcessorFixture(t, 0)
	f.addresses.On("GetAddresses", mock.Anything, "Anstead", "QLD").Return(nil, assert.AnError)

	_, err := f.processor.Run(context.Background(), nil)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestProcessor_Budget(t *testing.T) {
	f := newProcessorFixture(t, 30*time.Minute)
	f.addresses.On("GetAddresses", mock.Anything, "Anstead", "QLD").Return(ansteadAddresses, nil)

	// each suburb takes an hour on the fake clock
	start := f.clock.now
	calls := 0
	f.processor.now = func() time.Time {
		calls++
		if calls <= 2 {
			return start
		}
		return start.Add(time.Hour)
	}

	processed, err := f.processor.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	f.addresses.AssertNotCalled(t, "GetAddresses", mock.Anything, "Somerville", "VIC")
}

func TestProcessor_WarmStart(t *testing.T) {
	f := newProcessorFixture(t, 0)
	f.addresses.On("GetAddresses", mock.Anything, "Somerville", "VIC").Return(somervilleAddresses[1:], nil)

	previous := []models.Address{{
		Name: "2 FAKE STREET SOMERVILLE 3912", GnafPID: "GAVIC000000002",
		LocationID: "LOC000000000002", Tech: "FTTN", Upgrade: "FTTP_SA",
	}}
	generated := f.clock.now.AddDate(0, 0, -30)
	require.NoError(t, f.results.Write("Somerville", "VIC", models.NewFeatureCollection("Somerville", previous, generated)))

	target := models.NewTarget("Somerville", "VIC")
	_, err := f.processor.Run(context.Background(), &target)
	require.NoError(t, err)

	assert.Zero(t, f.srv.Searches("2 FAKE STREET SOMERVILLE 3912"), "location id came from the previous result")
	assert.Equal(t, 1, f.srv.Details("LOC000000000002"), "status is always fetched fresh")

	current, err := f.results.Read("Somerville", "VIC")
	require.NoError(t, err)
	require.Len(t, current.Features, 1)
	assert.Equal(t, "FTTP", current.Features[0].Properties.Tech)
}

func TestProcessor_TransientFailuresStillWrite(t *testing.T) {
	f := newProcessorFixture(t, 0)
	f.srv.FailNext("LOC000126303452", 1)
	f.addresses.On("GetAddresses", mock.Anything, "Anstead", "QLD").Return(ansteadAddresses, nil)

	target := models.NewTarget("Anstead", "QLD")
	processed, err := f.processor.Run(context.Background(), &target)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	fc, err := f.results.Read("Anstead", "QLD")
	require.NoError(t, err)
	assert.NotNil(t, fc.Features)
	assert.Empty(t, fc.Features, "an empty result is still written")
}

func TestProcessor_DuplicateKeepsEnrichedCopy(t *testing.T) {
	f := newProcessorFixture(t, 0)
	f.srv.FailNext("LOC000000000002", 1)
	f.addresses.On("GetAddresses", mock.Anything, "Somerville", "VIC").Return(somervilleAddresses, nil)

	target := models.NewTarget("Somerville", "VIC")
	_, err := f.processor.Run(context.Background(), &target)
	require.NoError(t, err)

	fc, err := f.results.Read("Somerville", "VIC")
	require.NoError(t, err)
	require.Len(t, fc.Features, 1, "the enriched copy replaces the failed one")
	props := fc.Features[0].Properties
	assert.Equal(t, "LOC000000000002", props.LocationID)
	assert.Equal(t, "FTTP", props.Tech)
	assert.Equal(t, models.UnknownUpgrade, props.Upgrade)
}
