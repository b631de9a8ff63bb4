package controller

import (
	"github.com/uber/rd-bridge/src/bridge/controller/bridge"
	"github.com/uber/rd-bridge/src/bridge/controller/documents"
	"github.com/uber/rd-bridge/src/bridge/controller/hostmanager"
	"github.com/uber/rd-bridge/src/bridge/controller/tooltip"
	"go.uber.org/fx"
)

// Module provides every controller of the daemon.
var Module = fx.Options(
	fx.Provide(bridge.New),
	fx.Provide(documents.New),
	fx.Provide(hostmanager.New),
	fx.Provide(tooltip.New),
)
