package server

import (
	"fmt"
	"sync/atomic"
)

// guardState is the state of a per-proposal transition guard.
type guardState uint32

const (
	// guardIdle: no transition in flight.
	guardIdle guardState = iota
	// guardBusy: a transition holds the proposal. Any other
	// transition on it is rejected with a ConflictError.
	guardBusy
)

func (s guardState) String() string {
	switch s {
	case guardIdle:
		return "Idle"
	case guardBusy:
		return "Busy"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Guard serialises transitions on a single proposal. Unlike a mutex
// it never blocks: a second caller is refused immediately.
type Guard struct {
	state atomic.Uint32
}

// NewGuard creates a guard in the Idle state.
func NewGuard() *Guard {
	g := &Guard{}
	g.state.Store(uint32(guardIdle))
	return g
}

// State returns the current guard state.
func (g *Guard) State() string {
	return guardState(g.state.Load()).String()
}

// TryAcquire transitions Idle → Busy. It returns false if another
// transition already holds the guard.
func (g *Guard) TryAcquire() bool {
	return g.state.CompareAndSwap(uint32(guardIdle), uint32(guardBusy))
}

// Release transitions Busy → Idle.
// Panics if the guard is not held.
func (g *Guard) Release() {
	if !g.state.CompareAndSwap(uint32(guardBusy), uint32(guardIdle)) {
		panic(fmt.Sprintf("dge: guard released in state %s (expected Busy)",
			guardState(g.state.Load())))
	}
}

// Busy reports whether a transition holds the guard.
func (g *Guard) Busy() bool {
	return guardState(g.state.Load()) == guardBusy
}
