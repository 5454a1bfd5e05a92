package engine

import (
	"errors"
	"fmt"

	"github.com/hkdev/hk/pkg/constants"
)

// Error classes. Per-job failures are attached to their jobs; these wrap
// everything that aborts or degrades the run as a whole. The process exit
// code follows the taxonomy hierarchy: configuration > cancellation >
// execution > stash.

// ConfigError aborts before any job runs.
type ConfigError struct{ Err error }

func (e *ConfigError) Error() string { return fmt.Sprintf("configuration error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// DiscoveryError means no repository, no config, or a required indicator
// was not found. It exits like a configuration error.
type DiscoveryError struct{ Err error }

func (e *DiscoveryError) Error() string { return e.Err.Error() }
func (e *DiscoveryError) Unwrap() error { return e.Err }

// StashError reports a failed stash acquire or restore. It never masks a
// prior job failure.
type StashError struct{ Err error }

func (e *StashError) Error() string { return fmt.Sprintf("stash: %v", e.Err) }
func (e *StashError) Unwrap() error { return e.Err }

// ErrCancelled is the terminal cause when the user or fail-fast aborted the
// run.
var ErrCancelled = errors.New("cancelled")

// ErrJobsFailed is the aggregate execution failure.
var ErrJobsFailed = errors.New("one or more steps failed")

// ExitCode maps an error onto the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return constants.ExitOK
	}
	var cfg *ConfigError
	var disc *DiscoveryError
	var stashErr *StashError
	switch {
	case errors.As(err, &cfg), errors.As(err, &disc):
		return constants.ExitConfig
	case errors.Is(err, ErrCancelled):
		return constants.ExitCancelled
	case errors.Is(err, ErrJobsFailed):
		return constants.ExitExecution
	case errors.As(err, &stashErr):
		return constants.ExitStash
	default:
		return constants.ExitExecution
	}
}
