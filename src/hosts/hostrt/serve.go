package hostrt

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Server is the owning side of a generated model.
type Server interface {
	Start() error
}

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return multierr.Combine(os.Stdin.Close(), os.Stdout.Close())
}

// Stdio is the protocol pipe of a host: the parent writes to stdin and reads stdout.
func Stdio() io.ReadWriteCloser {
	return stdio{Reader: os.Stdin, Writer: os.Stdout}
}

// Serve starts server and blocks until the peer disconnects or ctx is done. A peer that closes
// the pipe is a normal shutdown.
func Serve(ctx context.Context, logger *zap.SugaredLogger, conn *protocol.Connection, server Server) error {
	if err := server.Start(); err != nil {
		return err
	}
	logger.Infow("serving", "model", conn.Local().Name, "version", conn.Local().Version)

	select {
	case <-ctx.Done():
		logger.Infow("shutting down", "reason", ctx.Err())
		return conn.Close()
	case <-conn.Done():
	}

	err := conn.Err()
	if err == nil || errors.Is(err, protocol.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || protocol.IsChannelClosed(err) {
		logger.Infow("peer disconnected")
		return nil
	}
	return err
}
