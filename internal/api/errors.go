package api

import "errors"

// Domain error kinds. Repositories and services return these (wrapped);
// handlers translate them to status codes at the boundary. The guard chain
// deliberately collapses every authentication failure into
// ErrUnauthenticated so a caller cannot tell which step rejected it.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("invalid request")
)
