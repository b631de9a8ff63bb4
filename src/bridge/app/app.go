package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/controller"
	rdbridge "github.com/uber/rd-bridge/src/bridge/handler/rd-bridge"
	"github.com/uber/rd-bridge/src/bridge/internal/clock"
	"github.com/uber/rd-bridge/src/bridge/internal/compiler"
	"github.com/uber/rd-bridge/src/bridge/internal/core"
	"github.com/uber/rd-bridge/src/bridge/internal/executor"
	"github.com/uber/rd-bridge/src/bridge/internal/fs"
	"github.com/uber/rd-bridge/src/bridge/internal/jsonrpcfx"
	"github.com/uber/rd-bridge/src/bridge/internal/serverinfofile"
	"github.com/uber/rd-bridge/src/bridge/internal/syncsafe"
	"github.com/uber/rd-bridge/src/bridge/repository/session"
	"go.uber.org/fx"
)

// Module defines the rd-bridge application module.
var Module = fx.Options(
	controller.Module,
	rdbridge.Module, // inbounds
	jsonrpcfx.Module,
	compiler.Module,
	syncsafe.Module,
	fs.Module,
	executor.Module,
	serverinfofile.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(session.New),
	fx.Provide(clock.New),
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "rd-bridge",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        EnvLocal,
			RuntimeEnvironment: EnvLocal,
		}
	}),
)
