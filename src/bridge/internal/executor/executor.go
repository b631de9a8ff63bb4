package executor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(func(logger *zap.SugaredLogger) Executor {
		return NewExecutor(WithLogger(logger))
	}),
)

//go:generate mockgen -destination=executormock/executor_mock.go -package=executormock github.com/uber/rd-bridge/src/bridge/internal/executor Executor

// Executor wraps the execution of "os/exec".Cmd's to allow adding logs/metrics to
// each exec and makes it easier to test.
type Executor interface {
	// Start logs and starts cmd with its stdin and stdout connected to the returned process pipe.
	// Whatever the process writes to stderr is forwarded to the log.
	Start(cmd *exec.Cmd) (Process, error)
}

// Process is a started child process talking over its standard streams.
type Process interface {
	// Pipe writes to the stdin and reads from the stdout of the process. Closing it closes stdin,
	// which asks a well behaved process to exit.
	Pipe() io.ReadWriteCloser
	// PID returns the operating system process id.
	PID() int
	// Done is closed once the process exited.
	Done() <-chan struct{}
	// Err returns the exit error once Done is closed.
	Err() error
	// Kill terminates the process immediately.
	Kill() error
}

// executorImp implements Executor
type executorImp struct {
	Logger *zap.SugaredLogger
	// StartFunc may be replaced in tests.
	StartFunc func(cmd *exec.Cmd) error
}

// Option defines options to customize executorImp's behavior
type Option func(*executorImp)

// WithLogger overrides the default noop logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(executor *executorImp) {
		executor.Logger = logger
	}
}

// WithStartFunc provides customized start behavior for executorImp
func WithStartFunc(startFunc func(cmd *exec.Cmd) error) Option {
	return func(executor *executorImp) {
		executor.StartFunc = startFunc
	}
}

// NewExecutor creates a new executorImp with the given options and a default start function
func NewExecutor(opts ...Option) Executor {
	executor := &executorImp{
		Logger:    zap.NewNop().Sugar(),
		StartFunc: func(cmd *exec.Cmd) error { return cmd.Start() },
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Start logs the Path/Args, wires the standard streams and starts the process.
func (l *executorImp) Start(cmd *exec.Cmd) (Process, error) {
	l.logCommand(cmd)

	// os.Pipe rather than cmd.StdoutPipe: Wait must not close our read side while the protocol
	// reader still drains what the process wrote before exiting.
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("creating stdout pipe: %w", err), stdinR.Close(), stdinW.Close())
	}

	stderr := &zapio.Writer{
		Log:   l.Logger.Desugar().Named(filepath.Base(cmd.Path)),
		Level: zapcore.InfoLevel,
	}
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderr

	if err := l.StartFunc(cmd); err != nil {
		return nil, multierr.Combine(
			fmt.Errorf("starting %s: %w", cmd.Path, err),
			stdinR.Close(), stdinW.Close(), stdoutR.Close(), stdoutW.Close(),
		)
	}

	// The child holds its own copies now.
	_ = stdinR.Close()
	_ = stdoutW.Close()

	p := &process{
		cmd:  cmd,
		pipe: &pipe{ReadCloser: stdoutR, WriteCloser: stdinW},
		done: make(chan struct{}),
	}
	go p.wait(stderr, l.Logger)
	return p, nil
}

// Logs the command specified: Path, Dir, Args
func (l *executorImp) logCommand(cmd *exec.Cmd) {
	args := []string{}
	if len(cmd.Args) > 1 {
		args = cmd.Args[1:] // First arg is always the command itself
	}
	l.Logger.Infow("Exec",
		"Path", cmd.Path,
		"Dir", cmd.Dir,
		"Args", args,
	)
}

type pipe struct {
	io.ReadCloser
	io.WriteCloser
}

func (p *pipe) Close() error {
	return multierr.Combine(p.WriteCloser.Close(), p.ReadCloser.Close())
}

type process struct {
	cmd  *exec.Cmd
	pipe *pipe
	done chan struct{}

	mu  sync.Mutex
	err error
}

func (p *process) wait(stderr io.Closer, logger *zap.SugaredLogger) {
	err := p.cmd.Wait()
	_ = stderr.Close()

	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.done)

	logger.Infow("process exited", "Path", p.cmd.Path, "pid", p.cmd.Process.Pid, "exitCode", p.cmd.ProcessState.ExitCode())
}

func (p *process) Pipe() io.ReadWriteCloser { return p.pipe }

func (p *process) PID() int { return p.cmd.Process.Pid }

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	return nil
}
