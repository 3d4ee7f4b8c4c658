package service

import (
	"fibre-tracker/internal/models"
)

// SuburbProgress counts processed suburbs per state against all suburbs and against the
// announced ("listed") ones. The TOTAL row sums every state.
func SuburbProgress(reg *models.Registry) models.Progress {
	return progress(reg, func(models.Suburb) int { return 1 })
}

// AddressProgress is SuburbProgress weighted by each suburb's address count.
func AddressProgress(reg *models.Registry) models.Progress {
	return progress(reg, func(s models.Suburb) int { return s.AddressCount })
}

// ProgressReport bundles both views for progress.json.
func ProgressReport(reg *models.Registry) models.ProgressReport {
	return models.ProgressReport{
		Suburbs:   SuburbProgress(reg),
		Addresses: AddressProgress(reg),
	}
}

type counts struct{ done, total int }

func progress(reg *models.Registry, weight func(models.Suburb) int) models.Progress {
	all := map[string]*counts{models.TotalKey: {}}
	listed := map[string]*counts{models.TotalKey: {}}

	for _, state := range reg.States() {
		all[state], listed[state] = &counts{}, &counts{}
		for _, s := range reg.Suburbs(state) {
			w := weight(s)
			add(all, state, w, s.Processed())
			if s.Announced() {
				add(listed, state, w, s.Processed())
			}
		}
	}
	return models.Progress{All: tallies(all), Listed: tallies(listed)}
}

func add(m map[string]*counts, state string, w int, done bool) {
	for _, k := range []string{state, models.TotalKey} {
		m[k].total += w
		if done {
			m[k].done += w
		}
	}
}

func tallies(m map[string]*counts) models.StateTallies {
	out := make(models.StateTallies, len(m))
	for k, c := range m {
		out[k] = models.NewTally(c.done, c.total)
	}
	return out
}
