// ABOUTME: One-shot stop flag shared between the signal handler and the loop
// ABOUTME: Goes from running to stopped exactly once and is never reset
package silence

import "sync/atomic"

// RunFlag is a cancellation token polled by the playback loop. The zero
// value is already stopped; use NewRunFlag.
type RunFlag struct {
	running atomic.Bool
}

// NewRunFlag returns a flag in the running state
func NewRunFlag() *RunFlag {
	f := &RunFlag{}
	f.running.Store(true)
	return f
}

// Running reports whether the loop should keep going
func (f *RunFlag) Running() bool {
	return f.running.Load()
}

// Stop lowers the flag. It returns true only for the call that actually
// changed it, so callers can tell a first request from a repeat.
func (f *RunFlag) Stop() bool {
	return f.running.CompareAndSwap(true, false)
}
