// Package retry holds the attempt accounting for one logical request.
package retry

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// State is where a logical request stands after its latest transport call.
type State int

// Machine states. Every state other than Attempting is terminal.
const (
	Attempting State = iota
	Done
	Failed
	Exhausted
	Aborted
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Exhausted:
		return "exhausted"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further attempt may be made.
func (s State) Terminal() bool {
	return s != Attempting
}

// Policy bounds retries for a logical request.
type Policy struct {
	// MaxAttempts is the total number of transport calls, including the first.
	MaxAttempts int
	// RetryableStatusCodes are the statuses worth another attempt.
	RetryableStatusCodes []int
	// Interval is the fixed wait between attempts.
	Interval time.Duration
}

// DefaultPolicy retries 502 and 504 for three attempts, half a second apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:          constants.DefaultMaxRequestAttempts,
		RetryableStatusCodes: []int{constants.HTTPStatusBadGateway, constants.HTTPStatusGatewayTimeout},
		Interval:             constants.DefaultRetryInterval,
	}
}

// Validate rejects policies that could never make a call.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: %d", constants.ErrInvalidMaxAttempts, p.MaxAttempts)
	}

	if p.Interval < 0 {
		return constants.ErrNegativeInterval
	}

	return nil
}

// IsRetryable reports whether status is one of the retryable codes.
func (p Policy) IsRetryable(status int) bool {
	return slices.Contains(p.RetryableStatusCodes, status)
}

// Machine tracks the attempts of one logical request. It is safe for
// concurrent use, although a single request drives it sequentially.
type Machine struct {
	mu         sync.Mutex
	policy     Policy
	state      State
	attempts   int
	lastStatus int
	err        error
}

// NewMachine starts a machine in the Attempting state.
func NewMachine(policy Policy) *Machine {
	return &Machine{policy: policy, state: Attempting}
}

// Observe records one completed transport call and returns the new state.
func (m *Machine) Observe(status int) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Terminal() {
		return m.state
	}

	m.attempts++
	m.lastStatus = status

	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		m.state = Done
	case m.policy.IsRetryable(status) && m.attempts < m.policy.MaxAttempts:
		m.state = Attempting
	case m.policy.IsRetryable(status):
		m.state = Exhausted
	default:
		m.state = Failed
	}

	return m.state
}

// Abort ends the request on a transport or credential failure. The failed
// call is not counted as an attempt.
func (m *Machine) Abort(err error) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Terminal() {
		return m.state
	}

	m.state = Aborted
	m.err = err

	return m.state
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Attempts returns the number of completed transport calls.
func (m *Machine) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.attempts
}

// LastStatus returns the status of the most recent call, or 0.
func (m *Machine) LastStatus() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastStatus
}

// Err returns the error passed to Abort.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.err
}

// Policy returns the policy the machine was built with.
func (m *Machine) Policy() Policy {
	return m.policy
}

type machineKey struct{}

// WithMachine attaches m to ctx.
func WithMachine(ctx context.Context, m *Machine) context.Context {
	return context.WithValue(ctx, machineKey{}, m)
}

// MachineFromContext returns the machine attached by WithMachine, if any.
func MachineFromContext(ctx context.Context) (*Machine, bool) {
	m, ok := ctx.Value(machineKey{}).(*Machine)

	return m, ok && m != nil
}
