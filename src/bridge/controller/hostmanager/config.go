package hostmanager

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/config"
)

const _hostsKey = "hosts"

// RuntimeConfigFiles are the runtime configuration files of a host, per operating system family.
type RuntimeConfigFiles struct {
	Windows string `yaml:"windows"`
	Unix    string `yaml:"unix"`
}

// HostConfig describes how to launch and supervise one host process.
type HostConfig struct {
	Binary                  string             `yaml:"binary"`
	Args                    []string           `yaml:"args"`
	RuntimeConfig           RuntimeConfigFiles `yaml:"runtimeConfig"`
	HandshakeTimeoutMillis  int                `yaml:"handshakeTimeoutMillis"`
	HeartbeatIntervalMillis int                `yaml:"heartbeatIntervalMillis"`
	HeartbeatTimeoutMillis  int                `yaml:"heartbeatTimeoutMillis"`
	MaxRestarts             int                `yaml:"maxRestarts"`
	RestartWindowSeconds    int                `yaml:"restartWindowSeconds"`
	ShutdownGraceMillis     int                `yaml:"shutdownGraceMillis"`
}

// RuntimeConfigFile returns the runtime configuration matching goos.
func (c HostConfig) RuntimeConfigFile(goos string) string {
	if goos == "windows" {
		return c.RuntimeConfig.Windows
	}
	return c.RuntimeConfig.Unix
}

func (c HostConfig) handshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMillis) * time.Millisecond
}

func (c HostConfig) heartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMillis) * time.Millisecond
}

func (c HostConfig) heartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutMillis) * time.Millisecond
}

func (c HostConfig) restartWindow() time.Duration {
	return time.Duration(c.RestartWindowSeconds) * time.Second
}

func (c HostConfig) shutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceMillis) * time.Millisecond
}

func (c HostConfig) validate() error {
	switch {
	case c.Binary == "":
		return errors.New("missing binary")
	case c.HandshakeTimeoutMillis <= 0:
		return errors.New("handshakeTimeoutMillis must be positive")
	case c.HeartbeatIntervalMillis <= 0 || c.HeartbeatTimeoutMillis <= 0:
		return errors.New("heartbeat interval and timeout must be positive")
	case c.MaxRestarts < 0:
		return errors.New("maxRestarts must not be negative")
	case c.RestartWindowSeconds <= 0:
		return errors.New("restartWindowSeconds must be positive")
	case c.ShutdownGraceMillis < 0:
		return errors.New("shutdownGraceMillis must not be negative")
	}
	return nil
}

func loadConfigs(provider config.Provider) (map[Capability]HostConfig, error) {
	var raw map[string]HostConfig
	if err := provider.Get(_hostsKey).Populate(&raw); err != nil {
		return nil, fmt.Errorf("reading %s: %w", _hostsKey, err)
	}

	configs := make(map[Capability]HostConfig, len(raw))
	for name, cfg := range raw {
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", _hostsKey, name, err)
		}
		if cfg.RuntimeConfigFile(runtime.GOOS) == "" {
			return nil, fmt.Errorf("%s.%s: no runtime configuration for %s", _hostsKey, name, runtime.GOOS)
		}
		configs[Capability(name)] = cfg
	}
	return configs, nil
}
