package persistence

import "errors"

// ErrNotFound is returned by store lookups that find no matching row.
var ErrNotFound = errors.New("persistence: not found")

// ErrForbidden is returned when a row exists but belongs to a different workspace.
var ErrForbidden = errors.New("persistence: forbidden")
