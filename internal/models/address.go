package models

import "strings"

// FinalLocationPrefix marks location ids that resolve directly to a technology/upgrade status.
const FinalLocationPrefix = "LOC"

// UnknownUpgrade is recorded when a final location carries no upgrade reason code.
const UnknownUpgrade = "UNKNOWN"

// Address represents a single GNAF address point, optionally enriched with the NBN location id and its technology/upgrade status.
type Address struct {
	Name       string  `json:"name"`
	GnafPID    string  `json:"gnaf_pid"`
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	LocationID string  `json:"loc_id,omitempty"`
	Tech       string  `json:"tech,omitempty"`
	Upgrade    string  `json:"upgrade,omitempty"`
}

// HasStatus reports whether both technology and upgrade reason are populated.
func (a Address) HasStatus() bool {
	return a.Tech != "" && a.Upgrade != ""
}

// SameIdentity reports whether b carries the same source identity (name, id, coordinates) as a.
func (a Address) SameIdentity(b Address) bool {
	return a.Name == b.Name && a.GnafPID == b.GnafPID && a.Longitude == b.Longitude && a.Latitude == b.Latitude
}

// IsFinalLocation reports whether locID is a final NBN location id.
func IsFinalLocation(locID string) bool {
	return strings.HasPrefix(locID, FinalLocationPrefix)
}

// LocationKind buckets a location id for tallies: "None", "LOC" or "Other".
func LocationKind(locID string) string {
	switch {
	case locID == "":
		return "None"
	case IsFinalLocation(locID):
		return "LOC"
	default:
		return "Other"
	}
}

// RemoveDuplicateLocations keeps one address per location id, at the position of its first
// occurrence. The first copy with a status wins over copies without one.
// Addresses without a location id are always kept.
func RemoveDuplicateLocations(addresses []Address) []Address {
	seen := make(map[string]int, len(addresses))
	out := make([]Address, 0, len(addresses))
	for _, a := range addresses {
		if a.LocationID != "" {
			if i, dup := seen[a.LocationID]; dup {
				if !out[i].HasStatus() && a.HasStatus() {
					out[i] = a
				}
				continue
			}
			seen[a.LocationID] = len(out)
		}
		out = append(out, a)
	}
	return out
}
