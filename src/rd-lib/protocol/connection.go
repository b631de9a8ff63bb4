// Package protocol implements the channel that carries schema-typed messages between two processes.
//
// Every message is a Content-Length framed JSON-RPC 2.0 message whose method encodes a Tag
// (kind, node id, member id). Requests are matched to responses by correlation id; signals and
// property updates are notifications dispatched in arrival order.
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

// ErrClosed is the cause recorded when a connection is closed locally.
var ErrClosed = errors.New("closed by local side")

// State is the lifecycle state of a Connection.
type State int32

const (
	// StateConnecting means the transport is open but the handshake has not completed.
	StateConnecting State = iota
	// StateConnected means both sides agreed on a protocol version.
	StateConnected
	// StateDisconnected is terminal.
	StateDisconnected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Role is the side of the model a connection speaks for.
type Role int

const (
	// RoleOwner implements the model (asis stubs) and validates the handshake.
	RoleOwner Role = iota
	// RoleConsumer calls the model (reversed stubs) and starts the handshake.
	RoleConsumer
)

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == RoleOwner {
		return "owner"
	}
	return "consumer"
}

// Handler serves a request. A returned *jsonrpc2.Error is sent to the caller as is.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Listener receives signal and property notifications. Listeners run on the read loop,
// one at a time and in arrival order, so they must not block.
type Listener func(params json.RawMessage)

// Option customizes a Connection.
type Option func(*Connection)

// WithLogger sets the logger, the default is a no-op logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithStats sets the metrics scope.
func WithStats(stats tally.Scope) Option {
	return func(c *Connection) {
		c.stats = stats
	}
}

// WithID overrides the generated connection id.
func WithID(id uuid.UUID) Option {
	return func(c *Connection) {
		c.id = id
	}
}

type outgoing struct {
	msg        jsonrpc2.Message
	closeAfter error
}

type subscription struct {
	id uint64
	fn Listener
}

// cancelParams holds a pointer: jsonrpc2.ID only marshals through a pointer receiver.
type cancelParams struct {
	ID *jsonrpc2.ID `json:"id"`
}

// Connection is a single live bidirectional link between two processes.
type Connection struct {
	id     uuid.UUID
	role   Role
	local  schema.Info
	stream jsonrpc2.Stream
	logger *zap.SugaredLogger
	stats  tally.Scope

	seq     atomic.Uint64
	pending *pendingTable

	mu        sync.Mutex
	state     State
	started   bool
	remote    schema.Info
	err       error
	queue     []outgoing
	handlers  map[Tag]Handler
	listeners map[Tag][]subscription
	nextSub   uint64
	inflight  map[jsonrpc2.ID]context.CancelFunc
	onReady   []func()

	ctx       context.Context
	cancel    context.CancelFunc
	wake      chan struct{}
	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection wraps a transport. Register handlers and listeners, then call Start.
func NewConnection(rwc io.ReadWriteCloser, role Role, local schema.Info, opts ...Option) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:        uuid.Must(uuid.NewV4()),
		role:      role,
		local:     local,
		stream:    jsonrpc2.NewStream(rwc),
		logger:    zap.NewNop().Sugar(),
		stats:     tally.NoopScope,
		pending:   newPendingTable(),
		handlers:  make(map[Tag]Handler),
		listeners: make(map[Tag][]subscription),
		inflight:  make(map[jsonrpc2.ID]context.CancelFunc),
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("connection", c.id.String(), "role", role.String(), "model", local.Name)
	return c
}

// Dial opens a socket channel to a listening peer. The returned connection is not started.
func Dial(ctx context.Context, network, address string, role Role, local schema.Info, opts ...Option) (*Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, &ConnectError{Network: network, Address: address, Cause: err}
	}
	return NewConnection(conn, role, local, opts...), nil
}

// Start launches the read and write loops. Calling it more than once has no effect.
func (c *Connection) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.readLoop()
	go c.writeLoop()
}

// ID returns the connection id.
func (c *Connection) ID() uuid.UUID { return c.id }

// Role returns the side this connection speaks for.
func (c *Connection) Role() Role { return c.role }

// Local returns the schema descriptor of this side.
func (c *Connection) Local() schema.Info { return c.local }

// Remote returns the schema descriptor of the peer once connected.
func (c *Connection) Remote() schema.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// State returns the current connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready is closed once the handshake succeeded.
func (c *Connection) Ready() <-chan struct{} { return c.ready }

// Done is closed once the connection is disconnected.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Err returns the reason the connection was disconnected.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close disconnects the channel. Every pending call fails with a ChannelClosedError.
func (c *Connection) Close() error {
	c.fail(ErrClosed)
	return nil
}

// OnReady runs fn once the handshake succeeds, or right away if it already has.
func (c *Connection) OnReady(fn func()) {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		fn()
		return
	case StateConnecting:
		c.onReady = append(c.onReady, fn)
	}
	c.mu.Unlock()
}

// OnMessage registers the handler serving requests for tag.
func (c *Connection) OnMessage(tag Tag, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[tag] = h
}

// Subscribe registers a listener for signal or property notifications on tag.
func (c *Connection) Subscribe(tag Tag, l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.listeners[tag] = append(c.listeners[tag], subscription{id: id, fn: l})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		subs := c.listeners[tag]
		for i, s := range subs {
			if s.id == id {
				c.listeners[tag] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Call sends a request and waits for its response, the context deadline, cancellation, or disconnect.
func (c *Connection) Call(ctx context.Context, tag Tag, params, result any) error {
	if tag.Kind != KindRequest {
		return fmt.Errorf("cannot call %v: not a request", tag)
	}
	if err := c.checkConnected(); err != nil {
		return err
	}
	return c.call(ctx, tag.Method(), params, result)
}

// Notify sends a signal or property update. Nothing is queued for a disconnected channel.
func (c *Connection) Notify(tag Tag, params any) error {
	if tag.Kind == KindRequest {
		return fmt.Errorf("cannot notify %v: it is a request", tag)
	}
	if err := c.checkConnected(); err != nil {
		return err
	}
	msg, err := jsonrpc2.NewNotification(tag.Method(), params)
	if err != nil {
		return fmt.Errorf("encoding %v: %w", tag, err)
	}
	return c.enqueue(msg, nil)
}

// Ping performs a heartbeat round trip.
func (c *Connection) Ping(ctx context.Context) error {
	return c.call(ctx, MethodHeartbeat, nil, nil)
}

// Handshake negotiates the protocol version from the consuming side. On failure the connection is closed.
func (c *Connection) Handshake(ctx context.Context) error {
	if c.role != RoleConsumer {
		return errors.New("only the consuming side starts a handshake")
	}

	var remote schema.Info
	if err := c.call(ctx, MethodHandshake, c.local, &remote); err != nil {
		var rpcErr *jsonrpc2.Error
		if errors.As(err, &rpcErr) && rpcErr.Code == CodeHandshakeRejected {
			err = &HandshakeError{Reason: rpcErr.Message}
		}
		c.fail(err)
		return err
	}
	if err := Negotiate(remote, c.local); err != nil {
		c.fail(err)
		return err
	}
	c.markReady(remote)
	return nil
}

func (c *Connection) checkConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnecting:
		return &HandshakeError{Reason: "channel has not been negotiated yet"}
	case StateDisconnected:
		return &ChannelClosedError{Cause: c.err}
	}
	return nil
}

func (c *Connection) call(ctx context.Context, method string, params, result any) error {
	id := jsonrpc2.NewStringID(strconv.FormatUint(c.seq.Add(1), 10))
	msg, err := jsonrpc2.NewCall(id, method, params)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", method, err)
	}

	deadline, _ := ctx.Deadline()
	p := NewPendingCall(id, method, deadline)
	if !c.pending.add(p) {
		return &ChannelClosedError{Cause: c.Err()}
	}
	c.stats.Gauge("pending").Update(float64(c.pending.len()))

	if err := c.enqueue(msg, nil); err != nil {
		c.pending.take(id)
		return err
	}

	select {
	case <-p.Done():
	case <-ctx.Done():
		if c.pending.take(id) != nil {
			outcome := OutcomeCancelled
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				outcome = OutcomeTimedOut
			}
			c.settle(p, outcome, nil, ctx.Err())
			if n, err := jsonrpc2.NewNotification(MethodCancel, cancelParams{ID: &id}); err == nil {
				_ = c.enqueue(n, nil)
			}
		}
		<-p.Done()
	}
	c.stats.Gauge("pending").Update(float64(c.pending.len()))

	raw, err := p.Result()
	if err != nil {
		return err
	}
	if result != nil && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Connection) settle(p *PendingCall, outcome Outcome, raw json.RawMessage, err error) {
	if rerr := p.Resolve(outcome, raw, err); rerr != nil {
		c.logger.DPanicw("pending call resolved twice", "method", p.Method, zap.Error(rerr))
	}
}

func (c *Connection) enqueue(msg jsonrpc2.Message, closeAfter error) error {
	c.mu.Lock()
	if c.state == StateDisconnected {
		err := c.err
		c.mu.Unlock()
		return &ChannelClosedError{Cause: err}
	}
	c.queue = append(c.queue, outgoing{msg: msg, closeAfter: closeAfter})
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *Connection) dequeue() []outgoing {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queue
	c.queue = nil
	return q
}

func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.wake:
		case <-c.done:
			return
		}

		for _, out := range c.dequeue() {
			if _, err := c.stream.Write(c.ctx, out.msg); err != nil {
				c.fail(err)
				return
			}
			c.stats.Counter("sent").Inc(1)
			if out.closeAfter != nil {
				c.fail(out.closeAfter)
				return
			}
		}
	}
}

func (c *Connection) readLoop() {
	for {
		msg, _, err := c.stream.Read(c.ctx)
		if err != nil {
			c.fail(err)
			return
		}
		c.stats.Counter("received").Inc(1)

		switch m := msg.(type) {
		case *jsonrpc2.Response:
			c.handleResponse(m)
		case *jsonrpc2.Call:
			c.handleCall(m)
		case *jsonrpc2.Notification:
			c.handleNotification(m)
		}
	}
}

func (c *Connection) handleResponse(r *jsonrpc2.Response) {
	p := c.pending.take(r.ID())
	if p == nil {
		c.logger.Debugw("discarding late response", "id", r.ID())
		return
	}
	if err := r.Err(); err != nil {
		c.settle(p, OutcomeError, nil, err)
		return
	}
	c.settle(p, OutcomeValue, r.Result(), nil)
}

func (c *Connection) handleCall(call *jsonrpc2.Call) {
	switch call.Method() {
	case MethodHandshake:
		c.acceptHandshake(call)
		return
	case MethodHeartbeat:
		c.reply(call.ID(), struct{}{}, nil)
		return
	}

	tag, err := ParseTag(call.Method())
	if err != nil || tag.Kind != KindRequest {
		c.reply(call.ID(), nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, fmt.Sprintf("unknown method %q", call.Method())))
		return
	}

	c.mu.Lock()
	if c.role == RoleOwner && c.state != StateConnected {
		c.mu.Unlock()
		c.reply(call.ID(), nil, jsonrpc2.NewError(CodeHandshakeRequired, "handshake required"))
		return
	}
	h, ok := c.handlers[tag]
	if !ok {
		c.mu.Unlock()
		c.reply(call.ID(), nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, fmt.Sprintf("no handler for %v", tag)))
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.inflight[call.ID()] = cancel
	c.mu.Unlock()

	go c.serve(ctx, cancel, call, h)
}

func (c *Connection) serve(ctx context.Context, cancel context.CancelFunc, call *jsonrpc2.Call, h Handler) {
	defer func() {
		c.mu.Lock()
		delete(c.inflight, call.ID())
		c.mu.Unlock()
		cancel()
	}()

	result, err := c.invoke(ctx, call, h)
	if err != nil && ctx.Err() != nil && c.ctx.Err() == nil {
		err = jsonrpc2.NewError(CodeRequestCancelled, "request cancelled")
	}
	c.reply(call.ID(), result, err)
}

func (c *Connection) invoke(ctx context.Context, call *jsonrpc2.Call, h Handler) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("request handler panicked", "method", call.Method(), "panic", r)
			result, err = nil, jsonrpc2.NewError(jsonrpc2.InternalError, fmt.Sprintf("handler panicked: %v", r))
		}
	}()
	return h(ctx, call.Params())
}

func (c *Connection) handleNotification(n *jsonrpc2.Notification) {
	if n.Method() == MethodCancel {
		var p cancelParams
		if err := json.Unmarshal(n.Params(), &p); err != nil || p.ID == nil {
			c.logger.Debugw("malformed cancel", zap.Error(err))
			return
		}
		c.mu.Lock()
		cancel, ok := c.inflight[*p.ID]
		c.mu.Unlock()
		if ok {
			cancel()
		}
		return
	}

	tag, err := ParseTag(n.Method())
	if err != nil || tag.Kind == KindRequest {
		c.logger.Debugw("dropping unknown notification", "method", n.Method())
		return
	}

	c.mu.Lock()
	if c.role == RoleOwner && c.state != StateConnected {
		c.mu.Unlock()
		c.logger.Debugw("dropping notification before handshake", "tag", tag.String())
		return
	}
	subs := append([]subscription(nil), c.listeners[tag]...)
	c.mu.Unlock()

	for _, s := range subs {
		c.dispatch(tag, s.fn, n.Params())
	}
}

func (c *Connection) dispatch(tag Tag, l Listener, params json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("listener panicked", "tag", tag.String(), "panic", r)
		}
	}()
	l(params)
}

func (c *Connection) acceptHandshake(call *jsonrpc2.Call) {
	if c.role != RoleOwner {
		c.reply(call.ID(), nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "consumer does not accept handshakes"))
		return
	}
	if c.State() != StateConnecting {
		c.reply(call.ID(), nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "handshake already completed"))
		return
	}

	var remote schema.Info
	if err := json.Unmarshal(call.Params(), &remote); err != nil {
		c.reply(call.ID(), nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error()))
		return
	}
	if err := Negotiate(c.local, remote); err != nil {
		c.logger.Warnw("rejecting handshake",
			"remoteVersion", remote.Version,
			"remoteFingerprint", remote.Fingerprint,
			zap.Error(err),
		)
		var hs *HandshakeError
		errors.As(err, &hs)
		c.replyAndClose(call.ID(), nil, jsonrpc2.NewError(CodeHandshakeRejected, hs.Reason), err)
		return
	}

	c.reply(call.ID(), c.local, nil)
	c.markReady(remote)
}

func (c *Connection) markReady(remote schema.Info) {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	c.remote = remote
	hooks := c.onReady
	c.onReady = nil
	close(c.ready)
	c.mu.Unlock()

	c.logger.Infow("channel connected", "remoteVersion", remote.Version, "localVersion", c.local.Version)
	for _, fn := range hooks {
		fn()
	}
}

func (c *Connection) reply(id jsonrpc2.ID, result any, err error) {
	c.replyAndClose(id, result, err, nil)
}

func (c *Connection) replyAndClose(id jsonrpc2.ID, result any, err error, closeAfter error) {
	resp, merr := jsonrpc2.NewResponse(id, result, err)
	if merr != nil {
		resp, _ = jsonrpc2.NewResponse(id, nil, jsonrpc2.NewError(jsonrpc2.InternalError, merr.Error()))
	}
	if qerr := c.enqueue(resp, closeAfter); qerr != nil {
		c.logger.Debugw("dropping response", "id", id, zap.Error(qerr))
	}
}

// fail moves the connection to its terminal state exactly once.
func (c *Connection) fail(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateDisconnected
		c.err = cause
		c.queue = nil
		c.onReady = nil
		inflight := c.inflight
		c.inflight = make(map[jsonrpc2.ID]context.CancelFunc)
		c.mu.Unlock()

		c.cancel()
		close(c.done)
		_ = c.stream.Close()

		closed := &ChannelClosedError{Cause: cause}
		for _, p := range c.pending.drain() {
			c.settle(p, OutcomeError, nil, closed)
		}
		for _, cancel := range inflight {
			cancel()
		}
		c.stats.Gauge("pending").Update(0)
		c.logger.Infow("channel disconnected", "cause", cause)
	})
}
