package service

import (
	"context"
	"slices"
	"testing"
	"time"

	"fibre-tracker/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRegistrySource struct {
	mock.Mock
}

func (m *MockRegistrySource) Load() (*models.Registry, error) {
	args := m.Called()
	reg, _ := args.Get(0).(*models.Registry)
	return reg, args.Error(1)
}

var schedulerNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := schedulerNow.AddDate(0, 0, -n)
	return &t
}

func newTestScheduler(reg *models.Registry) (*Scheduler, *MockRegistrySource) {
	source := new(MockRegistrySource)
	source.On("Load").Return(reg, nil)
	s := NewScheduler(source, DefaultRefreshDays)
	s.now = func() time.Time { return schedulerNow }
	return s, source
}

func TestScheduler_PassOrder(t *testing.T) {
	reg := models.NewRegistry()
	reg.Put("ACT", models.Suburb{Name: "C", ProcessedDate: daysAgo(10)})
	reg.Put("ACT", models.Suburb{Name: "B", ProcessedDate: daysAgo(30), AnnouncedDate: daysAgo(400)})
	reg.Put("ACT", models.Suburb{Name: "A"})

	s, _ := newTestScheduler(reg)
	seq, err := s.Select(context.Background(), nil)
	require.NoError(t, err)

	expected := []models.Target{
		{Suburb: "A", State: "ACT"},
		{Suburb: "B", State: "ACT"},
		{Suburb: "C", State: "ACT"},
	}
	assert.Empty(t, cmp.Diff(expected, slices.Collect(seq)))
}

func TestScheduler_FullOrdering(t *testing.T) {
	reg := models.NewRegistry()
	// never processed: by name, then state
	reg.Put("VIC", models.Suburb{Name: "Somerville"})
	reg.Put("QLD", models.Suburb{Name: "Anstead", AnnouncedDate: daysAgo(100)})
	reg.Put("NSW", models.Suburb{Name: "Somerville"})
	// announced and stale: oldest first
	reg.Put("QLD", models.Suburb{Name: "Bli Bli", ProcessedDate: daysAgo(20), AnnouncedDate: daysAgo(300)})
	reg.Put("ACT", models.Suburb{Name: "Aranda", ProcessedDate: daysAgo(60), AnnouncedDate: daysAgo(300)})
	// announced but fresh, and unannounced: oldest first
	reg.Put("ACT", models.Suburb{Name: "Bruce", ProcessedDate: daysAgo(3), AnnouncedDate: daysAgo(300)})
	reg.Put("WA", models.Suburb{Name: "Perth", ProcessedDate: daysAgo(90)})
	reg.Put("TAS", models.Suburb{Name: "Hobart", ProcessedDate: daysAgo(1)})

	s, _ := newTestScheduler(reg)
	seq, err := s.Select(context.Background(), nil)
	require.NoError(t, err)

	expected := []models.Target{
		{Suburb: "Anstead", State: "QLD"},
		{Suburb: "Somerville", State: "NSW"},
		{Suburb: "Somerville", State: "VIC"},
		{Suburb: "Aranda", State: "ACT"},
		{Suburb: "Bli Bli", State: "QLD"},
		{Suburb: "Perth", State: "WA"},
		{Suburb: "Bruce", State: "ACT"},
		{Suburb: "Hobart", State: "TAS"},
	}
	got := slices.Collect(seq)
	assert.Empty(t, cmp.Diff(expected, got))
	assert.Len(t, got, reg.Len(), "each suburb is emitted once")
}

func TestScheduler_StopsEarly(t *testing.T) {
	reg := models.NewRegistry()
	for _, name := range []string{"A", "B", "C", "D"} {
		reg.Put("ACT", models.Suburb{Name: name})
	}
	s, source := newTestScheduler(reg)

	seq, err := s.Select(context.Background(), nil)
	require.NoError(t, err)

	var got []string
	for target := range seq {
		got = append(got, target.Suburb)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"A", "B"}, got)
	source.AssertNumberOfCalls(t, "Load", 1)
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	reg := models.NewRegistry()
	reg.Put("ACT", models.Suburb{Name: "A"})
	reg.Put("ACT", models.Suburb{Name: "B"})
	s, _ := newTestScheduler(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seq, err := s.Select(ctx, nil)
	require.NoError(t, err)

	var got []string
	for target := range seq {
		got = append(got, target.Suburb)
		cancel()
	}
	assert.Equal(t, []string{"A"}, got)
}

func TestScheduler_ExplicitTarget(t *testing.T) {
	reg := models.NewRegistry()
	reg.Put("QLD", models.Suburb{Name: "Bli Bli", ProcessedDate: daysAgo(1)})
	reg.Put("QLD", models.Suburb{Name: "Anstead"})

	tests := []struct {
		name      string
		target    models.Target
		expected  []models.Target
		expectErr bool
	}{
		{
			name:     "normalised name",
			target:   models.Target{Suburb: "bli-bli", State: "qld"},
			expected: []models.Target{{Suburb: "Bli Bli", State: "QLD"}},
		},
		{
			name:     "exact name",
			target:   models.Target{Suburb: "Anstead", State: "QLD"},
			expected: []models.Target{{Suburb: "Anstead", State: "QLD"}},
		},
		{
			name:      "wrong state",
			target:    models.Target{Suburb: "Anstead", State: "NSW"},
			expectErr: true,
		},
		{
			name:      "unknown suburb",
			target:    models.Target{Suburb: "Nowhere", State: "QLD"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScheduler(reg)
			seq, err := s.Select(context.Background(), &tt.target)
			if tt.expectErr {
				assert.ErrorIs(t, err, models.ErrNotFound)
				assert.Nil(t, seq)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, slices.Collect(seq))
		})
	}
}

func TestScheduler_LoadError(t *testing.T) {
	source := new(MockRegistrySource)
	source.On("Load").Return(nil, assert.AnError)

	_, err := NewScheduler(source, DefaultRefreshDays).Select(context.Background(), nil)
	assert.ErrorIs(t, err, assert.AnError)
}
