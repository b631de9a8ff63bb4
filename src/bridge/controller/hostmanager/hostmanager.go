// Package hostmanager supervises the isolated worker host processes. Hosts are spawned on first
// use, watched through their channel, their process and a heartbeat, restarted after a crash
// within a sliding-window budget and shut down with a grace period.
package hostmanager

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/internal/clock"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/bridge/internal/executor"
	"github.com/uber/rd-bridge/src/rd-lib/model/formatterclient"
	"github.com/uber/rd-bridge/src/rd-lib/model/typeprovidersclient"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -destination=hostmanagermock/hostmanager_mock.go -package=hostmanagermock github.com/uber/rd-bridge/src/bridge/controller/hostmanager Manager

// Manager owns the host processes of the daemon.
type Manager interface {
	// Acquire returns the connected client of a capability, spawning its host on first use and
	// waiting for an ongoing restart. It fails with a CapabilityUnavailableError once the host
	// crashed more often than its restart budget allows.
	Acquire(ctx context.Context, capability Capability) (Client, error)
	// TypeProviders acquires the type provider host.
	TypeProviders(ctx context.Context) (*typeprovidersclient.Client, error)
	// Formatter acquires the formatter host.
	Formatter(ctx context.Context) (*formatterclient.Client, error)

	// State returns the current state of a capability.
	State(capability Capability) State
	// Snapshot describes every managed host.
	Snapshot() []HandleInfo
	// Observe calls fn on every state change. fn runs while the host is locked: it must not
	// block or call back into the Manager.
	Observe(fn Observer) (cancel func())

	// Shutdown stops every host. It is idempotent.
	Shutdown(ctx context.Context) error
}

// Client is the consuming side of a host model.
type Client interface {
	Conn() *protocol.Connection
	Connect(ctx context.Context) error
}

// Observer receives host state changes.
type Observer func(capability Capability, state State)

// HandleInfo describes a managed host for diagnostics.
type HandleInfo struct {
	Capability Capability `json:"capability" zap:"capability"`
	State      string     `json:"state" zap:"state"`
	Restarts   int        `json:"restarts" zap:"restarts"`
	Crashes    int        `json:"crashes" zap:"crashes"`
	PID        int        `json:"pid,omitempty" zap:"pid"`
	InstanceID string     `json:"instanceId,omitempty" zap:"instanceId"`
	LastAlive  time.Time  `json:"lastAlive" zap:"lastAlive"`
	LastError  string     `json:"lastError,omitempty" zap:"lastError"`
}

type binding struct {
	info      schema.Info
	newClient func(conn *protocol.Connection) Client
}

var _bindings = map[Capability]binding{
	TypeProviders: {
		info:      typeprovidersclient.Snapshot.Info(),
		newClient: func(conn *protocol.Connection) Client { return typeprovidersclient.NewClient(conn) },
	},
	Formatter: {
		info:      formatterclient.Snapshot.Info(),
		newClient: func(conn *protocol.Connection) Client { return formatterclient.NewClient(conn) },
	},
}

// Params are inbound parameters to initialize a new Manager.
type Params struct {
	fx.In

	Config    config.Provider
	Executor  executor.Executor
	Clock     clock.Clock
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Lifecycle fx.Lifecycle
}

type instance struct {
	id      uuid.UUID
	process executor.Process
	client  Client
	// stop is closed when the instance is shut down on purpose.
	stop chan struct{}
}

type handle struct {
	capability Capability
	cfg        HostConfig
	binding    binding
	logger     *zap.SugaredLogger
	stats      tally.Scope
	connStats  tally.Scope

	mu        sync.Mutex
	state     State
	current   *instance
	crashes   []time.Time
	total     int
	restarts  int
	lastAlive time.Time
	lastErr   error
	broken    error
}

type manager struct {
	launcher Launcher
	clock    clock.Clock
	logger   *zap.SugaredLogger
	group    singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handles map[Capability]*handle

	mu     sync.Mutex
	closed bool

	obsMu     sync.Mutex
	observers map[uint64]Observer
	nextObs   uint64
}

// New creates the Manager from the hosts configuration. Hosts are not started until acquired.
func New(p Params) (Manager, error) {
	configs, err := loadConfigs(p.Config)
	if err != nil {
		return nil, err
	}
	m := newManager(configs, NewLauncher(p.Executor), p.Clock, p.Logger, p.Stats)
	p.Lifecycle.Append(fx.StopHook(m.Shutdown))
	return m, nil
}

func newManager(configs map[Capability]HostConfig, launcher Launcher, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope) *manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &manager{
		launcher:  launcher,
		clock:     clk,
		logger:    logger.With("component", "hostmanager"),
		ctx:       ctx,
		cancel:    cancel,
		handles:   make(map[Capability]*handle),
		observers: make(map[uint64]Observer),
	}

	for capability, cfg := range configs {
		b, ok := _bindings[capability]
		if !ok {
			m.logger.Warnw("ignoring host without a model", "capability", capability)
			continue
		}
		tags := map[string]string{"capability": string(capability)}
		m.handles[capability] = &handle{
			capability: capability,
			cfg:        cfg,
			binding:    b,
			logger:     m.logger.With("capability", capability),
			stats:      stats.SubScope("hostmanager").Tagged(tags),
			connStats:  stats.SubScope("protocol").Tagged(tags),
		}
	}
	return m
}

func (m *manager) Acquire(ctx context.Context, capability Capability) (Client, error) {
	h, ok := m.handles[capability]
	if !ok {
		return nil, fmt.Errorf("unknown capability %q", capability)
	}

	h.mu.Lock()
	switch h.state {
	case StateReady:
		c := h.current.client
		h.mu.Unlock()
		return c, nil
	case StateShutDown:
		err := h.unavailable()
		h.mu.Unlock()
		return nil, err
	}
	h.mu.Unlock()

	ch := m.group.DoChan(string(capability), func() (interface{}, error) {
		return m.start(h)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(Client), nil
	}
}

func (m *manager) TypeProviders(ctx context.Context) (*typeprovidersclient.Client, error) {
	c, err := m.Acquire(ctx, TypeProviders)
	if err != nil {
		return nil, err
	}
	return c.(*typeprovidersclient.Client), nil
}

func (m *manager) Formatter(ctx context.Context) (*formatterclient.Client, error) {
	c, err := m.Acquire(ctx, Formatter)
	if err != nil {
		return nil, err
	}
	return c.(*formatterclient.Client), nil
}

func (m *manager) State(capability Capability) State {
	h, ok := m.handles[capability]
	if !ok {
		return StateNotStarted
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (m *manager) Snapshot() []HandleInfo {
	infos := make([]HandleInfo, 0, len(m.handles))
	for _, h := range m.handles {
		h.mu.Lock()
		info := HandleInfo{
			Capability: h.capability,
			State:      h.state.String(),
			Restarts:   h.restarts,
			Crashes:    h.total,
			LastAlive:  h.lastAlive,
		}
		if h.current != nil {
			info.PID = h.current.process.PID()
			info.InstanceID = h.current.id.String()
		}
		if h.lastErr != nil {
			info.LastError = h.lastErr.Error()
		}
		h.mu.Unlock()
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Capability < infos[j].Capability })
	return infos
}

func (m *manager) Observe(fn Observer) (cancel func()) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.nextObs++
	id := m.nextObs
	m.observers[id] = fn

	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		delete(m.observers, id)
	}
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, h := range m.handles {
		wg.Add(1)
		go func(h *handle) {
			defer wg.Done()
			if err := m.stop(ctx, h); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(h)
	}
	wg.Wait()
	m.wg.Wait()
	return errs
}

// start brings a host to Ready, restarting it as long as the budget allows. It runs inside the
// singleflight group of the capability.
func (m *manager) start(h *handle) (Client, error) {
	for {
		h.mu.Lock()
		switch h.state {
		case StateReady:
			c := h.current.client
			h.mu.Unlock()
			return c, nil
		case StateShutDown:
			err := h.unavailable()
			h.mu.Unlock()
			return nil, err
		case StateRestarting:
			h.restarts++
			h.stats.Counter("restarts").Inc(1)
		default:
			m.transition(h, StateStarting)
		}
		h.mu.Unlock()

		c, err := m.spawn(h)
		if err == nil {
			return c, nil
		}
		if !m.crashed(h, nil, err) {
			h.mu.Lock()
			err = h.unavailable()
			h.mu.Unlock()
			return nil, err
		}
	}
}

func (m *manager) spawn(h *handle) (Client, error) {
	h.stats.Counter("spawns").Inc(1)
	proc, err := m.launcher.Launch(h.capability, h.cfg)
	if err != nil {
		return nil, fmt.Errorf("launching %s host: %w", h.capability, err)
	}

	inst := &instance{
		id:      uuid.Must(uuid.NewV4()),
		process: proc,
		stop:    make(chan struct{}),
	}
	conn := protocol.NewConnection(proc.Pipe(), protocol.RoleConsumer, h.binding.info,
		protocol.WithID(inst.id),
		protocol.WithLogger(h.logger),
		protocol.WithStats(h.connStats),
	)
	inst.client = h.binding.newClient(conn)

	h.mu.Lock()
	if h.state == StateShutDown {
		h.mu.Unlock()
		m.discard(inst)
		return nil, errors.HostShutDownError
	}
	m.transition(h, StateHandshaking)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(m.ctx, h.cfg.handshakeTimeout())
	err = inst.client.Connect(ctx)
	cancel()
	if err != nil {
		m.discard(inst)
		return nil, fmt.Errorf("handshake with %s host: %w", h.capability, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateShutDown {
		m.discard(inst)
		return nil, errors.HostShutDownError
	}
	h.current = inst
	h.lastAlive = m.clock.Now()
	h.lastErr = nil
	m.wg.Add(1)
	go m.watch(h, inst)
	m.transition(h, StateReady)
	h.logger.Infow("host ready", "pid", proc.PID(), "instance", inst.id.String())
	return inst.client, nil
}

// watch waits for the instance to disconnect, exit or miss a heartbeat, then restarts it.
func (m *manager) watch(h *handle, inst *instance) {
	defer m.wg.Done()
	conn := inst.client.Conn()
	ticker := time.NewTicker(h.cfg.heartbeatInterval())
	defer ticker.Stop()

	var cause error
	for cause == nil {
		select {
		case <-inst.stop:
			return
		case <-conn.Done():
			cause = &protocol.ChannelClosedError{Cause: conn.Err()}
		case <-inst.process.Done():
			cause = exitError(inst.process.Err())
		case <-ticker.C:
			cause = m.heartbeat(h, inst)
		}
	}

	if !m.crashed(h, inst, cause) {
		return
	}
	r := <-m.group.DoChan(string(h.capability), func() (interface{}, error) {
		return m.start(h)
	})
	if r.Err != nil {
		h.logger.Warnw("host restart failed", zap.Error(r.Err))
	}
}

type unresponsiveError struct {
	cause error
}

func (e *unresponsiveError) Error() string {
	return fmt.Sprintf("missed heartbeat: %v", e.cause)
}

func (e *unresponsiveError) Unwrap() error {
	return e.cause
}

func (m *manager) heartbeat(h *handle, inst *instance) error {
	ctx, cancel := context.WithTimeout(m.ctx, h.cfg.heartbeatTimeout())
	defer cancel()
	err := inst.client.Conn().Ping(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case err == nil:
		h.lastAlive = m.clock.Now()
		return nil
	case protocol.IsChannelClosed(err):
		return err
	default:
		return &unresponsiveError{cause: err}
	}
}

func exitError(err error) error {
	if err == nil {
		return errors.New("host process exited")
	}
	return fmt.Errorf("host process exited: %w", err)
}

// crashed records a crash of inst, or of a start attempt when inst is nil, and reports whether
// the host may be restarted.
func (m *manager) crashed(h *handle, inst *instance, cause error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	// A stopped or replaced instance is already handled elsewhere.
	if h.state == StateShutDown || (inst != nil && h.current != inst) {
		return false
	}

	var unresponsive *unresponsiveError
	if stderrors.As(cause, &unresponsive) {
		h.stats.Counter("unresponsive").Inc(1)
		m.transition(h, StateUnresponsive)
	}
	if inst != nil {
		m.discard(inst)
	}

	recent := h.crashes[:0]
	for _, t := range h.crashes {
		if m.clock.Since(t) < h.cfg.restartWindow() {
			recent = append(recent, t)
		}
	}
	h.crashes = append(recent, m.clock.Now())
	h.total++
	h.current = nil
	h.lastErr = cause
	h.stats.Counter("crashes").Inc(1)
	h.logger.Warnw("host crashed", "crashes", len(h.crashes), "window", h.cfg.restartWindow(), zap.Error(cause))
	m.transition(h, StateCrashed)

	if protocol.IsHandshakeFailure(cause) || len(h.crashes) > h.cfg.MaxRestarts {
		h.broken = &errors.CapabilityUnavailableError{Capability: string(h.capability), Crashes: len(h.crashes)}
		h.stats.Counter("circuit_broken").Inc(1)
		h.logger.Errorw("host will not be restarted", zap.Error(cause))
		m.transition(h, StateShutDown)
		return false
	}
	m.transition(h, StateRestarting)
	return true
}

// stop shuts a host down: its channel is closed, which closes the stdin of the process, and the
// process is killed if it did not exit within the grace period.
func (m *manager) stop(ctx context.Context, h *handle) error {
	h.mu.Lock()
	inst := h.current
	h.current = nil
	if h.state != StateShutDown {
		m.transition(h, StateShutDown)
	}
	h.mu.Unlock()
	if inst == nil {
		return nil
	}
	close(inst.stop)

	_ = inst.client.Conn().Close()
	grace := time.NewTimer(h.cfg.shutdownGrace())
	defer grace.Stop()
	select {
	case <-inst.process.Done():
		return nil
	case <-grace.C:
	case <-ctx.Done():
	}

	h.logger.Warnw("host did not exit in time, killing it", "pid", inst.process.PID(), "grace", h.cfg.shutdownGrace())
	if err := inst.process.Kill(); err != nil {
		return fmt.Errorf("killing %s host: %w", h.capability, err)
	}
	return nil
}

// discard drops an instance that is not going to serve anything.
func (m *manager) discard(inst *instance) {
	_ = inst.client.Conn().Close()
	if err := inst.process.Kill(); err != nil {
		m.logger.Debugw("killing host process", "pid", inst.process.PID(), zap.Error(err))
	}
}

// transition must be called with h.mu held.
func (m *manager) transition(h *handle, to State) {
	from := h.state
	if from == to {
		return
	}
	h.state = to
	h.stats.Gauge("state").Update(float64(to))
	h.logger.Infow("host state changed", "from", from.String(), "to", to.String())

	m.obsMu.Lock()
	observers := make([]Observer, 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.obsMu.Unlock()
	for _, fn := range observers {
		fn(h.capability, to)
	}
}

// unavailable must be called with h.mu held.
func (h *handle) unavailable() error {
	if h.broken != nil {
		return h.broken
	}
	return errors.HostShutDownError
}
