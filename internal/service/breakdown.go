package service

import (
	"fmt"
	"sort"

	"fibre-tracker/internal/models"
)

// ResultReader lists stored result collections.
type ResultReader interface {
	ReadAll(state string) ([]models.FeatureCollection, error)
}

// StateBreakdown tallies technology and upgrade reasons for one state.
type StateBreakdown struct {
	Suburbs int            `json:"suburbs"`
	Tech    map[string]int `json:"tech"`
	Upgrade map[string]int `json:"upgrade"`
}

// Breakdown maps state codes, and TOTAL, to their tallies.
type Breakdown map[string]StateBreakdown

// Keys returns every tech (or upgrade) value seen, sorted.
func (b Breakdown) Keys(upgrade bool) []string {
	seen := map[string]struct{}{}
	for _, sb := range b {
		m := sb.Tech
		if upgrade {
			m = sb.Upgrade
		}
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildBreakdown reads every result collection for states.
func BuildBreakdown(results ResultReader, states []string) (Breakdown, error) {
	total := StateBreakdown{Tech: map[string]int{}, Upgrade: map[string]int{}}
	out := Breakdown{}
	for _, state := range states {
		collections, err := results.ReadAll(state)
		if err != nil {
			return nil, fmt.Errorf("service: breakdown for %s: %w", state, err)
		}
		if len(collections) == 0 {
			continue
		}
		sb := StateBreakdown{Suburbs: len(collections), Tech: map[string]int{}, Upgrade: map[string]int{}}
		for _, fc := range collections {
			for _, f := range fc.Features {
				sb.Tech[f.Properties.Tech]++
				sb.Upgrade[f.Properties.Upgrade]++
				total.Tech[f.Properties.Tech]++
				total.Upgrade[f.Properties.Upgrade]++
			}
		}
		total.Suburbs += sb.Suburbs
		out[state] = sb
	}
	out[models.TotalKey] = total
	return out, nil
}
