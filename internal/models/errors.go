package models

import "errors"

// ErrTemplateNotFound is returned when no template matches an asset's
// equipment type, even after falling back to the generic (no manufacturer)
// template. It is an expected per-asset condition: sweeps skip and log it.
var ErrTemplateNotFound = errors.New("maintenance template not found")

// ErrNotFound is returned by repository lookups that matched no row.
var ErrNotFound = errors.New("not found")
