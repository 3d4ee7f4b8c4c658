package models

import "math"

// TotalKey is the row holding the sum over all states.
const TotalKey = "TOTAL"

// Tally is a done/total count with its percentage rounded to one decimal place.
type Tally struct {
	Done    int     `json:"done"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

func NewTally(done, total int) Tally {
	t := Tally{Done: done, Total: total}
	if total > 0 {
		t.Percent = math.Round(float64(done)/float64(total)*1000) / 10
	}
	return t
}

// StateTallies maps a state code (or TotalKey) to its tally.
type StateTallies map[string]Tally

// Progress compares completed work against all suburbs and against announced ("listed") ones.
type Progress struct {
	All    StateTallies `json:"all"`
	Listed StateTallies `json:"listed"`
}

// ProgressReport is the document persisted as progress.json.
type ProgressReport struct {
	Suburbs   Progress `json:"suburbs"`
	Addresses Progress `json:"addresses"`
}
