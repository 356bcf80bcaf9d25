package job

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the referenced job id is not in the store.
	ErrNotFound = errors.New("job: not found")

	// ErrEmptyName indicates a create request with an empty job name.
	ErrEmptyName = errors.New("job: name must not be empty")
)
