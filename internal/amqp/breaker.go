package amqp

import (
	"sync"
	"time"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
)

// breaker stops publish attempts after repeated failures and lets a single
// probe through once openTimeout has elapsed. Other callers are refused
// until the probe is recorded, or until it has been outstanding for
// openTimeout.
type breaker struct {
	mu           sync.Mutex
	state        int32
	failures     int
	lastFailure  time.Time
	probing      bool
	probeStarted time.Time
	now          func() time.Time
}

func newBreaker() *breaker {
	return &breaker{now: time.Now}
}

// allow reports whether a call may proceed, moving an expired open circuit
// to half-open.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if now.Sub(b.lastFailure) <= openTimeout {
			return false
		}
		b.state = StateHalfOpen
	}
	if b.probing && now.Sub(b.probeStarted) <= openTimeout {
		return false
	}
	b.probing = true
	b.probeStarted = now
	return true
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.state = StateClosed
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.probing = false
	b.lastFailure = b.now()
	if b.failures >= maxFailures || b.state == StateHalfOpen {
		b.state = StateOpen
	}
}

func (b *breaker) State() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
