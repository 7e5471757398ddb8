// Package rt isolates real-time scheduling setup from the sampling
// logic: memory locking, SCHED_FIFO thread priorities, and stack
// pre-touching. Everything here is a startup concern; the sampling state
// machine runs without any of it (and without privileges) when no
// real-time priority is configured.
package rt

import "runtime"

// frameSize is how much stack one growStack frame occupies.
const frameSize = 8 << 10

// PrefaultStack grows and touches the calling goroutine's stack so its
// pages are mapped, and after LockMemory also locked, before the
// sampling loop starts taking deadlines.
func PrefaultStack(n int) {
	if n > 0 {
		growStack(n)
	}
}

//go:noinline
func growStack(remaining int) {
	var frame [frameSize]byte
	frame[0] = 1
	if remaining > frameSize {
		growStack(remaining - frameSize)
	}
	runtime.KeepAlive(&frame)
}
