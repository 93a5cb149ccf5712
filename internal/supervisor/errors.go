package supervisor

import (
	"errors"

	"github.com/loykin/deployr/internal/registry"
	"github.com/loykin/deployr/internal/store"
)

// Hard errors abort the requested transition and leave state unchanged.
var (
	ErrAlreadyRunning     = registry.ErrAlreadyRunning
	ErrNotRunning         = errors.New("project is not running")
	ErrNotFound           = store.ErrNotFound
	ErrEnvironmentMissing = errors.New("virtual environment not found; provision the project first")
	ErrSpawnFailed        = errors.New("spawn failed")
)

// Soft errors surface as degraded results, never as aborted transitions.
var (
	ErrSampleUnavailable = errors.New("resource sample unavailable")
)
