// Package lifecycle tracks the process phase reported by the health endpoint.
package lifecycle

import "sync/atomic"

// Phase is the process phase. It only moves forward: starting, ready, draining.
type Phase int32

const (
	Starting Phase = iota
	Ready
	Draining
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// MarkReady moves Starting to Ready. It does nothing once draining has begun.
func MarkReady() {
	phase.CompareAndSwap(int32(Starting), int32(Ready))
}

// SetShuttingDown enters Draining. Call when SIGTERM/SIGINT is received.
// Health handler returns 503 with status shutting-down while draining.
func SetShuttingDown() {
	phase.Store(int32(Draining))
}

// Current returns the current phase.
func Current() Phase {
	return Phase(phase.Load())
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return Current() == Draining
}

// Reset returns to Starting. For tests only.
func Reset() {
	phase.Store(int32(Starting))
}
