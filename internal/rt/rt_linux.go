//go:build linux

package rt

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockMemory pins all current and future pages into RAM so the sampling
// loop never takes a major page fault.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}
	return nil
}

// SetThreadPriority moves the calling OS thread into SCHED_FIFO at the
// given priority. The caller must have pinned its goroutine with
// runtime.LockOSThread first, otherwise the runtime may migrate it to an
// unprivileged thread.
func SetThreadPriority(priority int) error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("sched_setattr(SCHED_FIFO, priority %d): %w", priority, err)
	}
	return nil
}
