package models

import (
	"fmt"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 timestamps as well as the zone-less ISO 8601 forms
// found in older result files.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("models: unrecognised timestamp %q", s)
}

// FormatTimestamp renders t as RFC 3339 with sub-second precision.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
