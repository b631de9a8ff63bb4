// Command formatter is the isolated host that runs the code formatting engine. It is versioned
// independently of the plugin backend and may run on a newer runtime.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/uber/rd-bridge/src/hosts/formatter/engine"
	"github.com/uber/rd-bridge/src/hosts/hostrt"
	"github.com/uber/rd-bridge/src/rd-lib/model/formatter"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
)

func run(ctx context.Context, env hostrt.Env) error {
	conn := protocol.NewConnection(env.Pipe, protocol.RoleOwner, formatter.Snapshot.Info(), protocol.WithLogger(env.Logger))
	server := formatter.NewServer(conn)
	if err := engine.Bind(server, env.Logger); err != nil {
		return err
	}
	return hostrt.Serve(ctx, env.Logger, conn, server)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := hostrt.NewCommand("formatter", "Code formatting host", hostrt.Stdio, run).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
