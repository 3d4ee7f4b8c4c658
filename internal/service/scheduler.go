package service

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"fibre-tracker/internal/models"
)

// DefaultRefreshDays is how stale an announced suburb may get before it is revisited ahead
// of the rest.
const DefaultRefreshDays = 14

// RegistrySource provides registry snapshots.
type RegistrySource interface {
	Load() (*models.Registry, error)
}

// Scheduler decides which suburb to process next.
type Scheduler struct {
	registry RegistrySource
	refresh  time.Duration
	now      func() time.Time
}

func NewScheduler(registry RegistrySource, refreshDays int) *Scheduler {
	return &Scheduler{
		registry: registry,
		refresh:  time.Duration(refreshDays) * 24 * time.Hour,
		now:      time.Now,
	}
}

// Select reads one registry snapshot and returns the order in which to work through it.
//
// With a target the sequence holds exactly that suburb, named as the registry spells it, or
// Select fails with models.ErrNotFound. Without one it yields never-processed suburbs by name
// then state, then announced suburbs older than the refresh threshold, then every other
// processed suburb, the last two oldest first. Each suburb appears at most once. The
// sequence stops early when ctx is done.
func (s *Scheduler) Select(ctx context.Context, target *models.Target) (iter.Seq[models.Target], error) {
	reg, err := s.registry.Load()
	if err != nil {
		return nil, fmt.Errorf("service: load registry: %w", err)
	}

	if target != nil {
		t := models.NewTarget(target.Suburb, target.State)
		suburb, ok := reg.Get(t.State, t.Suburb)
		if !ok {
			return nil, fmt.Errorf("service: suburb %s: %w", t, models.ErrNotFound)
		}
		return func(yield func(models.Target) bool) {
			yield(models.Target{Suburb: suburb.Name, State: t.State})
		}, nil
	}

	now := s.now()
	return func(yield func(models.Target) bool) {
		all := reg.All()

		var fresh, processed []models.StateSuburb
		for _, entry := range all {
			if entry.Suburb.Processed() {
				processed = append(processed, entry)
			} else {
				fresh = append(fresh, entry)
			}
		}
		sort.SliceStable(fresh, func(i, j int) bool {
			if fresh[i].Suburb.Name != fresh[j].Suburb.Name {
				return fresh[i].Suburb.Name < fresh[j].Suburb.Name
			}
			return fresh[i].State < fresh[j].State
		})
		sort.SliceStable(processed, func(i, j int) bool {
			return processed[i].Suburb.ProcessedDate.Before(*processed[j].Suburb.ProcessedDate)
		})

		emit := func(entry models.StateSuburb) bool {
			if ctx.Err() != nil {
				return false
			}
			return yield(models.Target{Suburb: entry.Suburb.Name, State: entry.State})
		}

		for _, entry := range fresh {
			if !emit(entry) {
				return
			}
		}

		emitted := make(map[int]bool)
		for i, entry := range processed {
			if entry.Suburb.Announced() && now.Sub(*entry.Suburb.ProcessedDate) > s.refresh {
				emitted[i] = true
				if !emit(entry) {
					return
				}
			}
		}
		for i, entry := range processed {
			if emitted[i] {
				continue
			}
			if !emit(entry) {
				return
			}
		}
	}, nil
}
