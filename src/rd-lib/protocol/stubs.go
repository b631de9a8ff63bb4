package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

// Void is the payload of requests and responses declared as void.
type Void struct{}

// Call sends a typed request over conn.
func Call[Req, Resp any](ctx context.Context, conn *Connection, tag Tag, req Req) (Resp, error) {
	var resp Resp
	err := conn.Call(ctx, tag, req, &resp)
	return resp, err
}

// Endpoint is the owner-side registration point of a request. Requests arriving
// before Set fail with MethodNotFound.
type Endpoint[Req, Resp any] struct {
	tag Tag

	mu      sync.RWMutex
	handler func(ctx context.Context, req Req) (Resp, error)
}

// NewEndpoint registers an empty endpoint for tag on conn.
func NewEndpoint[Req, Resp any](conn *Connection, tag Tag) *Endpoint[Req, Resp] {
	e := &Endpoint[Req, Resp]{tag: tag}
	conn.OnMessage(tag, e.serve)
	return e
}

// Set installs the implementation.
func (e *Endpoint[Req, Resp]) Set(h func(ctx context.Context, req Req) (Resp, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

// IsSet reports whether an implementation is installed.
func (e *Endpoint[Req, Resp]) IsSet() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handler != nil
}

// Tag returns the wire tag of the endpoint.
func (e *Endpoint[Req, Resp]) Tag() Tag {
	return e.tag
}

func (e *Endpoint[Req, Resp]) serve(ctx context.Context, params json.RawMessage) (any, error) {
	e.mu.RLock()
	h := e.handler
	e.mu.RUnlock()
	if h == nil {
		return nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, fmt.Sprintf("handler not registered for %v", e.tag))
	}

	var req Req
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
		}
	}
	return h(ctx, req)
}

// Signal is a fire-and-forget event. Delivery is at most once and nothing is queued for a
// disconnected channel.
type Signal[T any] struct {
	conn *Connection
	tag  Tag
}

// NewSignal binds a signal to conn.
func NewSignal[T any](conn *Connection, tag Tag) *Signal[T] {
	return &Signal[T]{conn: conn, tag: tag}
}

// Fire sends v to every listener currently advised on the remote side.
func (s *Signal[T]) Fire(v T) error {
	return s.conn.Notify(s.tag, v)
}

// Advise calls fn for every signal the remote side fires.
func (s *Signal[T]) Advise(fn func(T)) (unsubscribe func()) {
	return s.conn.Subscribe(s.tag, func(raw json.RawMessage) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			s.conn.logger.Warnw("dropping undecodable signal", "tag", s.tag.String(), zap.Error(err))
			return
		}
		fn(v)
	})
}

type propertyUpdate[T any] struct {
	Clock uint64 `json:"clock"`
	Owner bool   `json:"owner"`
	Value T      `json:"value"`
}

type watcher[T any] struct {
	id uint64
	fn func(T)
}

// Property is a value replicated on both sides of a connection. Conflicting writes resolve
// last-writer-wins on a per-property logical clock; equal clocks resolve in favour of the owner.
type Property[T any] struct {
	conn  *Connection
	tag   Tag
	owner bool

	mu       sync.Mutex
	value    T
	clock    uint64
	hasValue bool
	watchers []watcher[T]
	nextID   uint64
}

// NewProperty binds a property to conn. The current value is pushed to the peer once the
// handshake succeeds.
func NewProperty[T any](conn *Connection, tag Tag) *Property[T] {
	p := &Property[T]{conn: conn, tag: tag, owner: conn.Role() == RoleOwner}
	conn.Subscribe(tag, p.receive)
	conn.OnReady(p.push)
	return p
}

// Get returns the current value and whether one was ever set.
func (p *Property[T]) Get() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.hasValue
}

// Value returns the current value or the zero value.
func (p *Property[T]) Value() T {
	v, _ := p.Get()
	return v
}

// Set writes a new value locally and replicates it.
func (p *Property[T]) Set(v T) error {
	p.mu.Lock()
	p.clock++
	p.value = v
	p.hasValue = true
	u := propertyUpdate[T]{Clock: p.clock, Owner: p.owner, Value: v}
	watchers := append([]watcher[T](nil), p.watchers...)
	p.mu.Unlock()

	for _, w := range watchers {
		w.fn(v)
	}
	if p.conn.State() == StateConnecting {
		return nil
	}
	return p.conn.Notify(p.tag, u)
}

// Watch calls fn on every change, local or remote.
func (p *Property[T]) Watch(fn func(T)) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.watchers = append(p.watchers, watcher[T]{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, w := range p.watchers {
			if w.id == id {
				p.watchers = append(p.watchers[:i:i], p.watchers[i+1:]...)
				return
			}
		}
	}
}

func (p *Property[T]) push() {
	p.mu.Lock()
	if !p.hasValue {
		p.mu.Unlock()
		return
	}
	u := propertyUpdate[T]{Clock: p.clock, Owner: p.owner, Value: p.value}
	p.mu.Unlock()

	if err := p.conn.Notify(p.tag, u); err != nil {
		p.conn.logger.Debugw("property sync skipped", "tag", p.tag.String(), zap.Error(err))
	}
}

func (p *Property[T]) receive(raw json.RawMessage) {
	var u propertyUpdate[T]
	if err := json.Unmarshal(raw, &u); err != nil {
		p.conn.logger.Warnw("dropping undecodable property update", "tag", p.tag.String(), zap.Error(err))
		return
	}

	p.mu.Lock()
	if u.Clock < p.clock || (u.Clock == p.clock && p.owner) {
		p.mu.Unlock()
		return
	}
	p.clock = u.Clock
	p.value = u.Value
	p.hasValue = true
	watchers := append([]watcher[T](nil), p.watchers...)
	p.mu.Unlock()

	for _, w := range watchers {
		w.fn(u.Value)
	}
}
