// Package hostrt is the runtime shared by the isolated worker host processes: launch flags,
// runtime configuration, stderr logging and serving a model over stdin/stdout.
package hostrt

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// RuntimeConfig is the runtime configuration file a host is launched with.
type RuntimeConfig struct {
	RuntimeOptions RuntimeOptions `json:"runtimeOptions"`
}

// RuntimeOptions pins the runtime a host expects.
type RuntimeOptions struct {
	Framework Framework `json:"framework"`
	Platform  string    `json:"platform"`
}

// Framework names a runtime and its version.
type Framework struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// LoadRuntimeConfig reads a runtime configuration file. An empty path yields the configuration of
// the running process.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	if path == "" {
		return CurrentRuntime(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("reading runtime config: %w", err)
	}
	var cfg RuntimeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("decoding runtime config %q: %w", path, err)
	}
	if cfg.RuntimeOptions.Framework.Name == "" {
		return RuntimeConfig{}, fmt.Errorf("runtime config %q: missing field runtimeOptions.framework.name", path)
	}
	if cfg.RuntimeOptions.Platform == "" {
		cfg.RuntimeOptions.Platform = runtime.GOOS
	}
	return cfg, nil
}

// CurrentRuntime describes the running process.
func CurrentRuntime() RuntimeConfig {
	return RuntimeConfig{RuntimeOptions: RuntimeOptions{
		Framework: Framework{Name: "go", Version: runtime.Version()},
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}}
}
