// Package rdbridge serves the IDE model of every connection accepted by the daemon.
package rdbridge

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	controller "github.com/uber/rd-bridge/src/bridge/controller/bridge"
	"github.com/uber/rd-bridge/src/bridge/internal/jsonrpcfx"
	"github.com/uber/rd-bridge/src/bridge/mapper"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module registers the handler with the JSON-RPC inbound.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(Handler) {}),
)

// Handler binds accepted connections to sessions.
type Handler = jsonrpcfx.ConnectionManager

// Params are inbound parameters to initialize the handler.
type Params struct {
	fx.In

	Controller controller.Controller
	JSONRPC    jsonrpcfx.JSONRPCModule
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

// New constructs the handler and registers it as the connection manager of the inbound.
func New(p Params) (Handler, error) {
	c := &jsonRPCConnectionManager{
		ctrl:   p.Controller,
		logger: p.Logger,
		stats:  p.Stats.SubScope("json_rpc"),
	}
	if err := p.JSONRPC.RegisterConnectionManager(c); err != nil {
		return nil, err
	}
	return c, nil
}

type jsonRPCConnectionManager struct {
	ctrl   controller.Controller
	logger *zap.SugaredLogger
	stats  tally.Scope
}

// NewConnection creates a session for conn, binds the IDE model to it and starts serving.
func (c *jsonRPCConnectionManager) NewConnection(ctx context.Context, conn *protocol.Connection) (uuid.UUID, error) {
	server := ide.NewServer(conn)
	id, err := c.ctrl.InitSession(ctx, server)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error while creating new connection: %w", err)
	}

	r := &jsonRPCRouter{
		bridge: c.ctrl,
		uuid:   id,
		logger: c.logger.With("session", id.String()),
		stats:  c.stats,
	}
	r.bind(server)

	if err := server.Start(); err != nil {
		// Ensure the session does not outlive a connection that never served.
		if endErr := c.ctrl.EndSession(mapper.SessionUUIDToContext(ctx, id), id); endErr != nil {
			c.logger.Warnw("unable to end session", zap.Error(endErr))
		}
		return uuid.Nil, err
	}
	return id, nil
}

// RemoveConnection cleans up a closed connection.
func (c *jsonRPCConnectionManager) RemoveConnection(ctx context.Context, id uuid.UUID) {
	ctx = mapper.SessionUUIDToContext(ctx, id)
	if err := c.ctrl.EndSession(ctx, id); err != nil {
		c.logger.Warnw("unable to end session", "session", id.String(), zap.Error(err))
	}
}
