// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the engine to distinguish between failure scenarios with
// errors.Is instead of string matching.
package repository

import "errors"

// ErrTableNotFound is returned when a table id does not exist. Handlers
// translate it into an HTTP 404 response; the ingestion path logs it and
// skips the sample (unknown ids are never auto-created).
var ErrTableNotFound = errors.New("table not found")

// ErrTableTypeNotFound is returned when a table type id does not exist.
var ErrTableTypeNotFound = errors.New("table type not found")

// ErrReservationNotFound is returned when a reservation id does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrConflict is returned when an operation loses a race or collides with
// existing state: an allocation whose commit-time re-check finds an
// overlapping active reservation, a cancel of a completed reservation, or
// a delete of a table that still has active reservations. Handlers
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation they are
// not authorized for. Handlers translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
