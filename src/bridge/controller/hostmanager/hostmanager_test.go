package hostmanager

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/internal/clock"
	bridgeerrors "github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/bridge/internal/executor"
	"github.com/uber/rd-bridge/src/hosts/hostrt"
	"github.com/uber/rd-bridge/src/hosts/typeproviders/registry"
	"github.com/uber/rd-bridge/src/rd-lib/model/typeproviders"
	"github.com/uber/rd-bridge/src/rd-lib/model/typeprovidersclient"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const _manifest = `name: Csv
namespace: FSharp.Data
types:
  - name: CsvProvider
    doc: Typed representation of a CSV file.
    members:
      - name: Load
        doc: Loads CSV from a file or URL.
`

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// freezableConn stops delivering what the host writes once frozen, like a host stuck in a
// provider call.
type freezableConn struct {
	net.Conn
	frozen    atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *freezableConn) Write(b []byte) (int, error) {
	if c.frozen.Load() {
		<-c.closed
		return 0, io.ErrClosedPipe
	}
	return c.Conn.Write(b)
}

func (c *freezableConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.Conn.Close()
}

// fakeProcess runs a type provider host in-process over a net.Pipe.
type fakeProcess struct {
	parent net.Conn
	host   *freezableConn
	pid    int
	// stubborn hosts ignore the closed pipe and only exit when killed.
	stubborn bool

	killed atomic.Bool
	done   chan struct{}
	once   sync.Once
	err    error
}

func (p *fakeProcess) Pipe() io.ReadWriteCloser { return p.parent }
func (p *fakeProcess) PID() int                  { return p.pid }
func (p *fakeProcess) Done() <-chan struct{}     { return p.done }

func (p *fakeProcess) Err() error {
	<-p.done
	return p.err
}

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.exit(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) exit(err error) {
	p.once.Do(func() {
		p.err = err
		_ = p.host.Close()
		close(p.done)
	})
}

type fakeLauncher struct {
	t        *testing.T
	info     schema.Info
	reg      *registry.Registry
	stubborn bool

	mu         sync.Mutex
	failLaunch error
	procs      []*fakeProcess
}

func newFakeLauncher(t *testing.T) *fakeLauncher {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "csv.yaml"), []byte(_manifest), 0o644))
	reg := registry.New()
	require.NoError(t, reg.LoadDir(dir))
	return &fakeLauncher{t: t, info: typeproviders.Snapshot.Info(), reg: reg}
}

func (l *fakeLauncher) Launch(_ Capability, _ HostConfig) (executor.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failLaunch != nil {
		l.procs = append(l.procs, nil)
		return nil, l.failLaunch
	}

	parent, hostEnd := net.Pipe()
	p := &fakeProcess{
		parent:   parent,
		host:     &freezableConn{Conn: hostEnd, closed: make(chan struct{})},
		pid:      1000 + len(l.procs),
		stubborn: l.stubborn,
		done:     make(chan struct{}),
	}
	l.procs = append(l.procs, p)

	conn := protocol.NewConnection(p.host, protocol.RoleOwner, l.info)
	server := typeproviders.NewServer(conn)
	require.NoError(l.t, registry.Bind(server, l.reg, hostrt.CurrentRuntime(), zap.NewNop().Sugar()))
	go func() {
		err := hostrt.Serve(context.Background(), zap.NewNop().Sugar(), conn, server)
		if !p.stubborn {
			p.exit(err)
		}
	}()
	return p, nil
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stateLog records every state change.
type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) observe(_ Capability, s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) all() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func (l *stateLog) count(s State) int {
	n := 0
	for _, got := range l.all() {
		if got == s {
			n++
		}
	}
	return n
}

func testConfig() HostConfig {
	return HostConfig{
		Binary:                  "typeproviders",
		RuntimeConfig:           RuntimeConfigFiles{Windows: "windows.json", Unix: "unix.json"},
		HandshakeTimeoutMillis:  1000,
		HeartbeatIntervalMillis: 1000,
		HeartbeatTimeoutMillis:  500,
		MaxRestarts:             2,
		RestartWindowSeconds:    60,
		ShutdownGraceMillis:     200,
	}
}

func newTestManager(t *testing.T, l Launcher, clk clock.Clock, cfg HostConfig) (*manager, *stateLog) {
	m := newManager(map[Capability]HostConfig{TypeProviders: cfg}, l, clk, zap.NewNop().Sugar(), tally.NewTestScope("", nil))
	log := &stateLog{}
	m.Observe(log.observe)
	t.Cleanup(func() {
		assert.NoError(t, m.Shutdown(context.Background()))
	})
	return m, log
}

func waitState(t *testing.T, m *manager, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return m.State(TypeProviders) == want }, 5*time.Second, 5*time.Millisecond,
		"want %v, have %v", want, m.State(TypeProviders))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NotStarted", StateNotStarted.String())
	assert.Equal(t, "Handshaking", StateHandshaking.String())
	assert.Equal(t, "ShutDown", StateShutDown.String())
	assert.Equal(t, "Unknown", State(42).String())
}

func TestAcquireSpawnsLazily(t *testing.T) {
	l := newFakeLauncher(t)
	m, log := newTestManager(t, l, clock.New(), testConfig())

	assert.Equal(t, StateNotStarted, m.State(TypeProviders))
	assert.Zero(t, l.launches())

	var wg sync.WaitGroup
	clients := make([]*typeprovidersclient.Client, 5)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := m.TypeProviders(context.Background())
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, l.launches())
	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
	assert.Equal(t, []State{StateStarting, StateHandshaking, StateReady}, log.all())

	res, err := clients[0].ResolveDoc(context.Background(), typeprovidersclient.ResolveDocRequest{
		Names:      []string{"CsvProvider"},
		Identifier: "Load",
	})
	require.NoError(t, err)
	assert.Equal(t, typeprovidersclient.ResolveDocResult{Found: true, Text: "Loads CSV from a file or URL."}, res)

	infos := m.Snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, "Ready", infos[0].State)
	assert.Equal(t, 1000, infos[0].PID)
	assert.NotEmpty(t, infos[0].InstanceID)
}

func TestAcquireUnknownCapability(t *testing.T) {
	m, _ := newTestManager(t, newFakeLauncher(t), clock.New(), testConfig())

	_, err := m.Acquire(context.Background(), Formatter)
	assert.ErrorContains(t, err, `unknown capability "formatter"`)
	assert.Equal(t, StateNotStarted, m.State(Formatter))
}

func TestCrashesWithinBudgetRestart(t *testing.T) {
	l := newFakeLauncher(t)
	cfg := testConfig()
	m, log := newTestManager(t, l, clock.New(), cfg)

	_, err := m.TypeProviders(context.Background())
	require.NoError(t, err)

	for crash := 1; crash <= cfg.MaxRestarts; crash++ {
		require.NoError(t, l.last().Kill())
		require.Eventually(t, func() bool {
			return l.launches() == crash+1 && m.State(TypeProviders) == StateReady
		}, 5*time.Second, 5*time.Millisecond)
		assert.Equal(t, crash, log.count(StateRestarting))
	}

	c, err := m.TypeProviders(context.Background())
	require.NoError(t, err)
	_, err = c.ListProviders(context.Background(), protocol.Void{})
	assert.NoError(t, err)

	// One crash more than the budget breaks the circuit for good.
	require.NoError(t, l.last().Kill())
	waitState(t, m, StateShutDown)

	_, err = m.TypeProviders(context.Background())
	var unavailable *bridgeerrors.CapabilityUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, cfg.MaxRestarts+1, unavailable.Crashes)
	assert.Equal(t, cfg.MaxRestarts+1, l.launches())

	infos := m.Snapshot()
	assert.Equal(t, cfg.MaxRestarts, infos[0].Restarts)
	assert.Equal(t, cfg.MaxRestarts+1, infos[0].Crashes)
	assert.NotEmpty(t, infos[0].LastError)
}

func TestRestartWindowSlides(t *testing.T) {
	l := newFakeLauncher(t)
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := testConfig()
	cfg.MaxRestarts = 1
	m, _ := newTestManager(t, l, clk, cfg)

	_, err := m.TypeProviders(context.Background())
	require.NoError(t, err)

	require.NoError(t, l.last().Kill())
	require.Eventually(t, func() bool { return l.launches() == 2 && m.State(TypeProviders) == StateReady }, 5*time.Second, 5*time.Millisecond)

	// The first crash leaves the window.
	clk.Advance(61 * time.Second)
	require.NoError(t, l.last().Kill())
	require.Eventually(t, func() bool { return l.launches() == 3 && m.State(TypeProviders) == StateReady }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, l.last().Kill())
	waitState(t, m, StateShutDown)
	assert.Equal(t, 3, l.launches())
}

func TestPendingRequestFailsWhenHostIsKilled(t *testing.T) {
	l := newFakeLauncher(t)
	cfg := testConfig()
	cfg.HeartbeatIntervalMillis = 2000
	m, log := newTestManager(t, l, clock.New(), cfg)

	c, err := m.TypeProviders(context.Background())
	require.NoError(t, err)

	proc := l.last()
	proc.host.frozen.Store(true)
	errs := make(chan error, 1)
	go func() {
		_, err := c.ResolveDoc(context.Background(), typeprovidersclient.ResolveDocRequest{Identifier: "CsvProvider"})
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, proc.Kill())
	select {
	case err := <-errs:
		assert.True(t, protocol.IsChannelClosed(err), "unexpected error: %v", err)
		assert.Less(t, time.Since(start), cfg.heartbeatInterval())
	case <-time.After(cfg.heartbeatInterval()):
		t.Fatal("pending request did not fail")
	}

	require.Eventually(t, func() bool { return log.count(StateRestarting) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, log.count(StateCrashed))
	waitState(t, m, StateReady)
}

func TestUnresponsiveHostIsReplaced(t *testing.T) {
	l := newFakeLauncher(t)
	cfg := testConfig()
	cfg.HeartbeatIntervalMillis = 20
	cfg.HeartbeatTimeoutMillis = 50
	m, log := newTestManager(t, l, clock.New(), cfg)

	_, err := m.TypeProviders(context.Background())
	require.NoError(t, err)

	stuck := l.last()
	stuck.host.frozen.Store(true)

	require.Eventually(t, func() bool {
		return l.launches() == 2 && m.State(TypeProviders) == StateReady
	}, 5*time.Second, 5*time.Millisecond)
	assert.True(t, stuck.killed.Load())

	states := log.all()
	assert.Contains(t, states, StateUnresponsive)
	for i, s := range states {
		if s == StateUnresponsive {
			require.Greater(t, len(states), i+1)
			assert.Equal(t, StateCrashed, states[i+1])
		}
	}
}

func TestHandshakeMismatchIsNotRetried(t *testing.T) {
	l := newFakeLauncher(t)
	l.info = schema.Info{Name: "TypeProvidersModel", Version: 99, CompatibleSince: 99, Fingerprint: "future"}
	m, log := newTestManager(t, l, clock.New(), testConfig())

	_, err := m.TypeProviders(context.Background())
	var unavailable *bridgeerrors.CapabilityUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, StateShutDown, m.State(TypeProviders))
	assert.Equal(t, 1, l.launches())
	assert.Equal(t, []State{StateStarting, StateHandshaking, StateCrashed, StateShutDown}, log.all())

	_, err = m.TypeProviders(context.Background())
	assert.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 1, l.launches())
}

func TestLaunchFailuresExhaustTheBudget(t *testing.T) {
	l := newFakeLauncher(t)
	l.failLaunch = errors.New("exec: \"typeproviders\": executable file not found in $PATH")
	cfg := testConfig()
	cfg.MaxRestarts = 1
	m, _ := newTestManager(t, l, clock.New(), cfg)

	_, err := m.TypeProviders(context.Background())
	assert.True(t, bridgeerrors.IsCapabilityUnavailable(err))
	assert.Equal(t, 2, l.launches())
	assert.Contains(t, m.Snapshot()[0].LastError, "executable file not found")
}

func TestAcquireHonoursContext(t *testing.T) {
	l := newFakeLauncher(t)
	m, _ := newTestManager(t, l, clock.New(), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.TypeProviders(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShutdown(t *testing.T) {
	t.Run("graceful", func(t *testing.T) {
		l := newFakeLauncher(t)
		m, _ := newTestManager(t, l, clock.New(), testConfig())
		_, err := m.TypeProviders(context.Background())
		require.NoError(t, err)
		proc := l.last()

		require.NoError(t, m.Shutdown(context.Background()))
		<-proc.Done()
		assert.False(t, proc.killed.Load())
		assert.Equal(t, StateShutDown, m.State(TypeProviders))

		_, err = m.TypeProviders(context.Background())
		assert.ErrorIs(t, err, bridgeerrors.HostShutDownError)
		assert.NoError(t, m.Shutdown(context.Background()))
	})

	t.Run("killed after the grace period", func(t *testing.T) {
		l := newFakeLauncher(t)
		l.stubborn = true
		cfg := testConfig()
		cfg.ShutdownGraceMillis = 50
		m, _ := newTestManager(t, l, clock.New(), cfg)
		_, err := m.TypeProviders(context.Background())
		require.NoError(t, err)
		proc := l.last()

		start := time.Now()
		require.NoError(t, m.Shutdown(context.Background()))
		assert.True(t, proc.killed.Load())
		assert.GreaterOrEqual(t, time.Since(start), cfg.shutdownGrace())
	})

	t.Run("never started", func(t *testing.T) {
		l := newFakeLauncher(t)
		m, log := newTestManager(t, l, clock.New(), testConfig())

		require.NoError(t, m.Shutdown(context.Background()))
		assert.Equal(t, []State{StateShutDown}, log.all())
		assert.Zero(t, l.launches())
	})
}

func TestObserveCancel(t *testing.T) {
	l := newFakeLauncher(t)
	m, _ := newTestManager(t, l, clock.New(), testConfig())

	var calls atomic.Int32
	cancel := m.Observe(func(Capability, State) { calls.Add(1) })
	cancel()

	_, err := m.TypeProviders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, calls.Load())
}
