//go:build !linux

package rt

import (
	"fmt"

	"github.com/lemeter/lemeter/internal/errors"
)

// LockMemory is unavailable off Linux.
func LockMemory() error {
	return fmt.Errorf("mlockall: %w", errors.ErrUnsupported)
}

// SetThreadPriority is unavailable off Linux.
func SetThreadPriority(priority int) error {
	return fmt.Errorf("sched_setattr(priority %d): %w", priority, errors.ErrUnsupported)
}
