package models

import (
	"sort"
	"strings"
	"time"
)

// StateNames maps the state headings used in NBN announcements to state codes.
var StateNames = map[string]string{
	"New South Wales":    "NSW",
	"ACT":                "ACT",
	"Victoria":           "VIC",
	"Queensland":         "QLD",
	"South Australia":    "SA",
	"Western Australia":  "WA",
	"Tasmania":           "TAS",
	"Northern Territory": "NT",
	"Other Territories":  "OT",
}

// States lists every state code in sorted order.
var States = func() []string {
	codes := make([]string, 0, len(StateNames))
	for _, code := range StateNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}()

// Suburb tracks one locality: when it was last processed, whether (and when) it was announced
// for upgrade, and how many addresses the source holds for it.
type Suburb struct {
	Name          string
	ProcessedDate *time.Time
	AnnouncedDate *time.Time
	AddressCount  int
}

// Announced is derived solely from the announced date.
func (s Suburb) Announced() bool {
	return s.AnnouncedDate != nil
}

// Processed reports whether the suburb has ever produced a result collection.
func (s Suburb) Processed() bool {
	return s.ProcessedDate != nil
}

// Internal returns the upper-case hyphenated form, e.g. "Brisbane City" -> "BRISBANE-CITY".
func (s Suburb) Internal() string {
	return InternalName(s.Name)
}

// File returns the lower-case hyphenated form used for result file names.
func (s Suburb) File() string {
	return FileName(s.Name)
}

// InternalName normalises a suburb name for comparisons.
func InternalName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

// FileName normalises a suburb name for file paths.
func FileName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

// Target is one unit of scheduling work.
type Target struct {
	Suburb string
	State  string
}

// NewTarget normalises the state code; the suburb name is kept as given.
func NewTarget(suburb, state string) Target {
	return Target{Suburb: strings.TrimSpace(suburb), State: strings.ToUpper(strings.TrimSpace(state))}
}

func (t Target) String() string {
	return t.Suburb + ", " + t.State
}

// DisplayName title-cases an upper-case source name, e.g. "BLI-BLI" -> "Bli-Bli".
func DisplayName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		parts := strings.Split(w, "-")
		for j, p := range parts {
			if p != "" {
				parts[j] = strings.ToUpper(p[:1]) + p[1:]
			}
		}
		words[i] = strings.Join(parts, "-")
	}
	return strings.Join(words, " ")
}
