package protocol

import (
	"encoding/json"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
)

// Outcome is the content of a PendingCall result slot.
type Outcome int

const (
	// OutcomePending means the call has not been resolved yet.
	OutcomePending Outcome = iota
	// OutcomeValue means the remote side answered with a result.
	OutcomeValue
	// OutcomeError means the remote side answered with an error, or the channel closed.
	OutcomeError
	// OutcomeCancelled means the caller gave up before an answer arrived.
	OutcomeCancelled
	// OutcomeTimedOut means the call deadline passed before an answer arrived.
	OutcomeTimedOut
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeValue:
		return "value"
	case OutcomeError:
		return "error"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// PendingCall is an in-flight request awaiting exactly one resolution.
type PendingCall struct {
	ID       jsonrpc2.ID
	Method   string
	Deadline time.Time

	mu      sync.Mutex
	outcome Outcome
	result  json.RawMessage
	err     error
	done    chan struct{}
}

// NewPendingCall creates an unresolved call. A zero deadline means no deadline.
func NewPendingCall(id jsonrpc2.ID, method string, deadline time.Time) *PendingCall {
	return &PendingCall{
		ID:       id,
		Method:   method,
		Deadline: deadline,
		done:     make(chan struct{}),
	}
}

// Resolve fills the result slot. Only the first resolution is kept; later ones return an
// AlreadyResolvedError and leave the first result untouched.
func (p *PendingCall) Resolve(outcome Outcome, result json.RawMessage, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outcome != OutcomePending {
		return &AlreadyResolvedError{ID: p.ID}
	}
	if outcome == OutcomePending {
		outcome = OutcomeError
	}
	p.outcome = outcome
	p.result = result
	p.err = err
	close(p.done)
	return nil
}

// Done is closed once the call is resolved.
func (p *PendingCall) Done() <-chan struct{} {
	return p.done
}

// Outcome returns the current content of the result slot.
func (p *PendingCall) Outcome() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

// Result returns the raw result and error of a resolved call.
func (p *PendingCall) Result() (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, p.err
}

// pendingTable is the per-connection correlation table. Taking a call out of the table is what
// grants the right to resolve it, so responses racing with cancellation never resolve twice.
type pendingTable struct {
	mu     sync.Mutex
	calls  map[jsonrpc2.ID]*PendingCall
	closed bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{calls: make(map[jsonrpc2.ID]*PendingCall)}
}

func (t *pendingTable) add(p *PendingCall) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.calls[p.ID] = p
	return true
}

func (t *pendingTable) take(id jsonrpc2.ID) *PendingCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.calls[id]
	if !ok {
		return nil
	}
	delete(t.calls, id)
	return p
}

// drain closes the table and returns every call still waiting.
func (t *pendingTable) drain() []*PendingCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	out := make([]*PendingCall, 0, len(t.calls))
	for id, p := range t.calls {
		out = append(out, p)
		delete(t.calls, id)
	}
	return out
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
