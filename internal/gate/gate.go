// Package gate implements a FIFO single-permit admission gate for the
// upstream trends provider. At most one caller may hold the permit at a
// time; everyone else queues in arrival order.
package gate

import "context"

// Gate is a single-permit, strictly-FIFO admission queue. The zero value
// is not usable; construct with New.
//
// Fairness comes from the Go runtime's channel implementation: goroutines
// blocked receiving from a channel are woken in the order they blocked, so a
// capacity-1 channel pre-loaded with one token behaves as a FIFO mutex.
type Gate struct {
	tokens chan struct{}
}

// New creates a gate with its single permit available immediately.
func New() *Gate {
	g := &Gate{tokens: make(chan struct{}, 1)}
	g.tokens <- struct{}{}
	return g
}

// Acquire blocks until the caller holds the permit, or ctx is done first.
// Acquisition is non-reentrant: a goroutine that already holds the permit
// must not call Acquire again before Release.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case <-g.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release hands the permit to the longest-waiting caller, or leaves it
// free if none are waiting. Calling Release without holding the permit
// is a programming error and panics.
func (g *Gate) Release() {
	select {
	case g.tokens <- struct{}{}:
	default:
		panic("gate: release of unheld permit")
	}
}
