package retry

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCooldown is how long the provider needs before a throttled window resets.
const DefaultCooldown = 15 * time.Minute

// State is the position of a ThrottlePolicy.
type State int

const (
	// StateFresh means the last attempt was not throttled.
	StateFresh State = iota
	// StateThrottled means one throttling signal was seen and a cooldown was granted.
	StateThrottled
	// StateFatal means a second consecutive throttling signal arrived.
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateThrottled:
		return "throttled"
	case StateFatal:
		return "fatal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ThrottlePolicy is the Fresh -> Throttled -> Fatal state machine for one logical request.
// It never sleeps; callers sleep for the duration it returns.
type ThrottlePolicy struct {
	cooldown time.Duration
	mu       sync.Mutex
	state    State
}

// NewThrottlePolicy creates a policy that grants a single cooldown of the given length.
func NewThrottlePolicy(cooldown time.Duration) *ThrottlePolicy {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &ThrottlePolicy{cooldown: cooldown}
}

// OnThrottled records a throttling signal. It returns the cooldown and true the
// first time, and zero and false once the policy is exhausted.
func (p *ThrottlePolicy) OnThrottled() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateFresh:
		p.state = StateThrottled
		return p.cooldown, true
	default:
		p.state = StateFatal
		return 0, false
	}
}

// OnSuccess resets the policy so the next request starts fresh.
func (p *ThrottlePolicy) OnSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateFresh
}

// State returns the current state.
func (p *ThrottlePolicy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cooldown returns the cooldown this policy grants.
func (p *ThrottlePolicy) Cooldown() time.Duration {
	return p.cooldown
}
