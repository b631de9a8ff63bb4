package hostrt

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Env is what a host receives once its flags are parsed.
type Env struct {
	Logger  *zap.SugaredLogger
	Runtime RuntimeConfig
	// Pipe is the protocol channel to the parent process.
	Pipe io.ReadWriteCloser
	// Args are the host specific positional arguments.
	Args []string
}

// RunFunc runs a host until its parent disconnects.
type RunFunc func(ctx context.Context, env Env) error

// NewCommand builds the command line of a host. Every host accepts --runtime-config, written by
// the host manager according to the operating system, and logs to stderr because stdout carries
// the protocol.
func NewCommand(name, short string, pipe func() io.ReadWriteCloser, run RunFunc) *cobra.Command {
	var (
		runtimeConfig string
		level         string
	)
	cmd := &cobra.Command{
		Use:          name,
		Short:        short,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := NewLogger(name, level)
			if err != nil {
				return err
			}
			defer logger.Sync()

			rt, err := LoadRuntimeConfig(runtimeConfig)
			if err != nil {
				return err
			}
			logger.Infow("host starting",
				"runtime", rt.RuntimeOptions.Framework.Name,
				"version", rt.RuntimeOptions.Framework.Version,
				"platform", rt.RuntimeOptions.Platform,
			)
			return run(cmd.Context(), Env{Logger: logger, Runtime: rt, Pipe: pipe(), Args: args})
		},
	}
	cmd.Flags().StringVar(&runtimeConfig, "runtime-config", "", "runtime configuration file")
	cmd.Flags().StringVar(&level, "log-level", "info", "log level")
	return cmd
}

// NewLogger returns a JSON logger that writes to stderr.
func NewLogger(name, level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar().Named(name), nil
}
