package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type registryKey struct {
	state string
	name  string
}

// Registry is the in-memory table of every known suburb, keyed by (state, internal name).
// It is persisted and replaced as a whole snapshot. Version counts the saves of that snapshot
// and is stored with it, so a store can reject writes based on an outdated copy.
type Registry struct {
	Version int64

	suburbs map[registryKey]Suburb
}

// StateSuburb pairs a suburb with the state it belongs to.
type StateSuburb struct {
	State  string
	Suburb Suburb
}

func NewRegistry() *Registry {
	return &Registry{suburbs: make(map[registryKey]Suburb)}
}

func key(state, name string) registryKey {
	return registryKey{state: NewTarget("", state).State, name: InternalName(name)}
}

// Put inserts or replaces the record for (state, s.Name).
func (r *Registry) Put(state string, s Suburb) {
	r.suburbs[key(state, s.Name)] = s
}

// Get looks a suburb up by state and name; name matching ignores case and treats spaces and
// hyphens alike.
func (r *Registry) Get(state, name string) (Suburb, bool) {
	s, ok := r.suburbs[key(state, name)]
	return s, ok
}

// Update applies fn to an existing record. It returns ErrNotFound if the suburb is absent.
func (r *Registry) Update(state, name string, fn func(*Suburb)) error {
	k := key(state, name)
	s, ok := r.suburbs[k]
	if !ok {
		return fmt.Errorf("registry: suburb %s, %s: %w", name, state, ErrNotFound)
	}
	fn(&s)
	r.suburbs[k] = s
	return nil
}

func (r *Registry) Len() int {
	return len(r.suburbs)
}

// States returns the states that have at least one suburb, sorted.
func (r *Registry) States() []string {
	seen := map[string]struct{}{}
	for k := range r.suburbs {
		seen[k.state] = struct{}{}
	}
	states := make([]string, 0, len(seen))
	for s := range seen {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}

// Suburbs returns the suburbs of one state ordered by name.
func (r *Registry) Suburbs(state string) []Suburb {
	state = NewTarget("", state).State
	var out []Suburb
	for k, s := range r.suburbs {
		if k.state == state {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// All returns every suburb ordered by state, then name.
func (r *Registry) All() []StateSuburb {
	var out []StateSuburb
	for _, state := range r.States() {
		for _, s := range r.Suburbs(state) {
			out = append(out, StateSuburb{State: state, Suburb: s})
		}
	}
	return out
}

// Clone returns an independent copy of the table.
func (r *Registry) Clone() *Registry {
	c := &Registry{Version: r.Version, suburbs: make(map[registryKey]Suburb, len(r.suburbs))}
	for k, s := range r.suburbs {
		c.suburbs[k] = s
	}
	return c
}

type suburbRecord struct {
	Name          string  `json:"name"`
	ProcessedDate *string `json:"processed_date"`
	AnnouncedDate *string `json:"announced_date"`
	Announced     bool    `json:"announced"`
	AddressCount  int     `json:"address_count"`
}

const versionKey = "version"

// MarshalJSON writes the registry as {"version": n, "STATE": [suburb, ...]} with suburbs sorted
// by name; "version" is omitted while zero. The "announced" field is written for readers of the
// file but derived from announced_date.
func (r *Registry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if r.Version != 0 {
		out[versionKey] = r.Version
	}
	for _, state := range r.States() {
		records := []suburbRecord{}
		for _, s := range r.Suburbs(state) {
			records = append(records, suburbRecord{
				Name:          s.Name,
				ProcessedDate: formatOptional(s.ProcessedDate),
				AnnouncedDate: formatOptional(s.AnnouncedDate),
				Announced:     s.Announced(),
				AddressCount:  s.AddressCount,
			})
		}
		out[state] = records
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the format written by MarshalJSON. Any stored "announced" flag is ignored.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("registry: decode: %w", err)
	}
	r.Version = 0
	r.suburbs = make(map[registryKey]Suburb)
	for state, raw := range in {
		if state == versionKey {
			if err := json.Unmarshal(raw, &r.Version); err != nil {
				return fmt.Errorf("registry: version: %w", err)
			}
			continue
		}
		var records []suburbRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return fmt.Errorf("registry: %s: %w", state, err)
		}
		for _, rec := range records {
			processed, err := parseOptional(rec.ProcessedDate)
			if err != nil {
				return fmt.Errorf("registry: %s, %s: processed_date: %w", rec.Name, state, err)
			}
			announced, err := parseOptional(rec.AnnouncedDate)
			if err != nil {
				return fmt.Errorf("registry: %s, %s: announced_date: %w", rec.Name, state, err)
			}
			r.Put(state, Suburb{
				Name:          rec.Name,
				ProcessedDate: processed,
				AnnouncedDate: announced,
				AddressCount:  rec.AddressCount,
			})
		}
	}
	return nil
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTimestamp(*t)
	return &s
}

func parseOptional(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
