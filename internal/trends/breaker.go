package trends

import (
	"time"

	cb "github.com/sony/gobreaker"
)

// SequenceBreaker wraps one full upstream interaction (series fetch +
// inter-request delay + country fetch, already wrapped in the retry
// envelope) with a fast-fail circuit. It sits outside the retry
// envelope and operates per logical request, not per individual HTTP
// call: a trip only happens after several whole retry-exhausted
// sequences fail in a row, so it never shortens an in-progress retry
// budget — it only decides, before a new request starts, whether to
// skip the upstream and go straight to the stale-cache fallback.
type SequenceBreaker struct {
	cb *cb.CircuitBreaker
}

// NewSequenceBreaker builds a breaker named for logging, tripping
// after 3 consecutive exhausted sequences and probing again after 30s.
func NewSequenceBreaker(name string) *SequenceBreaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return &SequenceBreaker{cb: cb.NewCircuitBreaker(st)}
}

// Run executes fn through the breaker. When the breaker is open, fn is
// not called and gobreaker.ErrOpenState is returned immediately.
func (b *SequenceBreaker) Run(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State reports the breaker's current state; the engine uses it to set
// the circuit-open metric.
func (b *SequenceBreaker) State() cb.State {
	return b.cb.State()
}
