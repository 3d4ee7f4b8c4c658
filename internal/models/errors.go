package models

import "errors"

// ErrNotFound is returned when a suburb is missing from the registry or the address source.
var ErrNotFound = errors.New("not found")
