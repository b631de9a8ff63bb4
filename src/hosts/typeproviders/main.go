// Command typeproviders is the isolated host that evaluates type providers on behalf of the plugin
// backend. Providers are third-party code, so they run here where a hang or crash only costs a
// restart of this process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/uber/rd-bridge/src/hosts/hostrt"
	"github.com/uber/rd-bridge/src/hosts/typeproviders/registry"
	"github.com/uber/rd-bridge/src/rd-lib/model/typeproviders"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context, env hostrt.Env) error {
	conn := protocol.NewConnection(env.Pipe, protocol.RoleOwner, typeproviders.Snapshot.Info(), protocol.WithLogger(env.Logger))
	server := typeproviders.NewServer(conn)

	reg := registry.New()
	var dir string
	if len(env.Args) > 0 {
		dir = env.Args[0]
		if err := reg.LoadDir(dir); err != nil {
			env.Logger.Warnw("some provider manifests were skipped", zap.Error(err))
		}
	}
	if err := registry.Bind(server, reg, env.Runtime, env.Logger); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	if dir != "" {
		g.Go(func() error {
			return reg.Watch(ctx, dir, env.Logger, registry.Invalidate(server, env.Logger))
		})
	}
	g.Go(func() error {
		defer cancel()
		return hostrt.Serve(ctx, env.Logger, conn, server)
	})
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := hostrt.NewCommand("typeproviders", "Type provider host", hostrt.Stdio, run)
	cmd.Use = "typeproviders [manifest-dir]"
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
