package jsonrpcfx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/internal/serverinfofile"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKeyAddress = "jsonrpc.address"
	_nameKey          = "jsonrpc"
)

// Module is an fx module to serve IDE connections.
var Module = fx.Provide(New)

//go:generate mockgen -destination=jsonrpcfxmock/json_rpc_mock.go -package=jsonrpcfxmock github.com/uber/rd-bridge/src/bridge/internal/jsonrpcfx ConnectionManager
//go:generate mockgen -destination=connection_manager_mock_test.go -package=jsonrpcfx github.com/uber/rd-bridge/src/bridge/internal/jsonrpcfx ConnectionManager
//go:generate mockgen -destination=jsonrpcfxmock/json_rpc_module_mock.go -package=jsonrpcfxmock github.com/uber/rd-bridge/src/bridge/internal/jsonrpcfx JSONRPCModule

// JSONRPCModule accepts IDE connections and hands each one to the registered ConnectionManager.
type JSONRPCModule interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	ServeConn(ctx context.Context, conn *protocol.Connection) error
	RegisterConnectionManager(connectionManager ConnectionManager) error
	// Addr is the address the inbound listens on once started.
	Addr() net.Addr
}

// ConnectionManager binds each accepted connection to a session and tears it down on disconnect.
// NewConnection must start the connection.
type ConnectionManager interface {
	NewConnection(ctx context.Context, conn *protocol.Connection) (uuid.UUID, error)
	RemoveConnection(ctx context.Context, id uuid.UUID)
}

type module struct {
	Address string `json:"address"`

	connectionMgr  ConnectionManager
	logger         *zap.SugaredLogger
	stats          tally.Scope
	serverInfoFile serverinfofile.ServerInfoFile

	mu     sync.Mutex
	ln     net.Listener
	conns  map[*protocol.Connection]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Params define values to be used by the JSON-RPC inbound.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	Stats          tally.Scope
	ServerInfoFile serverinfofile.ServerInfoFile
}

// New creates the inbound listening on the configured address.
func New(p Params) (JSONRPCModule, error) {
	if p.Lifecycle == nil || p.Config == nil {
		return nil, errors.New("required parameters are missing")
	}

	m := &module{
		logger:         p.Logger,
		stats:          tally.NoopScope,
		serverInfoFile: p.ServerInfoFile,
		conns:          make(map[*protocol.Connection]struct{}),
	}
	if p.Stats != nil {
		m.stats = p.Stats.SubScope(_nameKey)
	}

	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
		OnStop:  m.OnStop,
	})

	return m, nil
}

// OnStart listens on the configured address, publishes the bound address for the IDE and begins
// accepting connections.
func (m *module) OnStart(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", m.Address, err)
	}

	// The configured port may be 0, so the IDE must learn the real one.
	if err := m.serverInfoFile.UpdateField(serverinfofile.FieldAddress, ln.Addr().String()); err != nil {
		ln.Close()
		return err
	}

	m.mu.Lock()
	m.ln = ln
	m.mu.Unlock()

	m.logger.Warnw("started JSON-RPC inbound", zap.String("address", ln.Addr().String()))
	m.wg.Add(1)
	go m.accept(ln)
	return nil
}

// OnStop stops accepting, disconnects every client and waits for their sessions to end.
func (m *module) OnStop(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	ln := m.ln
	conns := make([]*protocol.Connection, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for connections to end: %w", ctx.Err())
	}
}

func (m *module) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return nil
	}
	return m.ln.Addr()
}

func (m *module) accept(ln net.Listener) {
	defer m.wg.Done()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				m.logger.Errorw("accepting connection", zap.Error(err))
			}
			return
		}

		conn := protocol.NewConnection(nc, protocol.RoleOwner, ide.Snapshot.Info(),
			protocol.WithLogger(m.logger),
			protocol.WithStats(m.stats),
		)
		if !m.track(conn) {
			conn.Close()
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer m.untrack(conn)
			if err := m.ServeConn(context.Background(), conn); err != nil {
				m.logger.Warnw("connection ended", zap.Error(err))
			}
		}()
	}
}

// ServeConn binds conn to a new session and blocks until it disconnects.
func (m *module) ServeConn(ctx context.Context, conn *protocol.Connection) error {
	if m.connectionMgr == nil {
		m.logger.Errorf("cannot serve connection, no connection manager set")
		conn.Close()
		return errors.New("cannot serve connection, no connection manager set")
	}

	id, err := m.connectionMgr.NewConnection(ctx, conn)
	if err != nil {
		conn.Close()
		return err
	}
	m.stats.Counter("connections").Inc(1)
	m.logger.Infow("client connected", zap.Stringer("uuid", id))

	// Block until the connection is closed.
	<-conn.Done()

	m.connectionMgr.RemoveConnection(ctx, id)
	m.logger.Infow("client disconnected", zap.Stringer("uuid", id))

	if err := conn.Err(); !isDisconnect(err) {
		return err
	}
	return nil
}

// RegisterConnectionManager sets the connection manager, which keeps track of current active connections.
func (m *module) RegisterConnectionManager(connectionMgr ConnectionManager) error {
	if m.connectionMgr != nil {
		return errors.New("cannot register a duplicate connection manager")
	}
	m.connectionMgr = connectionMgr
	return nil
}

func (m *module) track(conn *protocol.Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.conns[conn] = struct{}{}
	m.stats.Gauge("active").Update(float64(len(m.conns)))
	return true
}

func (m *module) untrack(conn *protocol.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, conn)
	m.stats.Gauge("active").Update(float64(len(m.conns)))
}

// processConfig will parse the configuration for any values required by this module.
func (m *module) processConfig(cfg config.Provider) error {
	val := cfg.Get(_configKeyAddress)
	if err := val.Populate(&m.Address); err != nil {
		// incorrectly formatted config
		return fmt.Errorf("getting config field %q: %w", _configKeyAddress, err)
	}

	if m.Address == "" {
		// yaml is missing either the key or value
		return fmt.Errorf("missing field %q in config", _configKeyAddress)
	}

	return nil
}

func isDisconnect(err error) bool {
	return err == nil ||
		errors.Is(err, protocol.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		protocol.IsChannelClosed(err)
}
