package hostmanager

import (
	"os/exec"
	"runtime"

	"github.com/uber/rd-bridge/src/bridge/internal/executor"
)

// Launcher starts the process of a host.
type Launcher interface {
	Launch(capability Capability, cfg HostConfig) (executor.Process, error)
}

type execLauncher struct {
	executor executor.Executor
	goos     string
}

// NewLauncher returns a Launcher that runs the configured host binaries.
func NewLauncher(e executor.Executor) Launcher {
	return &execLauncher{executor: e, goos: runtime.GOOS}
}

func (l *execLauncher) Launch(_ Capability, cfg HostConfig) (executor.Process, error) {
	return l.executor.Start(l.command(cfg))
}

func (l *execLauncher) command(cfg HostConfig) *exec.Cmd {
	args := []string{"--runtime-config", cfg.RuntimeConfigFile(l.goos)}
	args = append(args, cfg.Args...)
	return exec.Command(cfg.Binary, args...)
}
