package sqlite

import (
	"chime/internal/engine"
	"chime/internal/scheduler"
)

// Compile-time interface checks.
var (
	_ engine.DurableStore = (*Store)(nil)
	_ scheduler.Persister = (*Store)(nil)
)
