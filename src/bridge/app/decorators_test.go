package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/rd-bridge/src/bridge/internal/fs"
	"github.com/uber/rd-bridge/src/bridge/internal/fs/fsmock"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
)

func TestEnv(t *testing.T) {
	tests := []struct {
		name      string
		setEnvVal string
		expectVal string
	}{
		{
			name:      "local",
			expectVal: EnvLocal,
		},
		{
			name:      "development",
			setEnvVal: "development",
			expectVal: EnvDevelopment,
		},
		{
			name:      "unknown value",
			setEnvVal: "staging",
			expectVal: EnvLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(_envBridgeEnvironment, tt.setEnvVal)

			fxtest.New(
				t,
				fx.Provide(func() Context {
					return Context{
						Environment:        "local",
						RuntimeEnvironment: "local",
					}
				}),
				fx.Decorate(decorateEnvContext),
				fx.Invoke(func(ctx Context) {
					require.Equal(t, tt.expectVal, ctx.Environment, "unexpected environment")
					require.Equal(t, tt.expectVal, ctx.RuntimeEnvironment, "unexpected runtime environment")
				}),
			).RequireStart().RequireStop()
		})
	}
}

func loggingConfig(paths ...string) config.Provider {
	p, _ := config.NewStaticProvider(map[string]interface{}{
		"logging": map[string]interface{}{
			"outputPaths": paths,
		},
	})
	return p
}

func TestDecorateConfigProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Run("no errors", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		fsMock.EXPECT().MkdirAll("/tmp/foo").Return(nil)

		fxtest.New(
			t,
			fx.Provide(func() fs.BridgeFS {
				return fsMock
			}),
			fx.Provide(func() config.Provider {
				return loggingConfig("/tmp/foo/myfile1.log")
			}),
			fx.Provide(func() Context {
				return Context{
					RuntimeEnvironment: EnvDevelopment,
				}
			}),
			fx.Decorate(decorateConfigProvider),
			fx.Invoke(func(cfg config.Provider) {
			}),
		).RequireStart().RequireStop()
	})

	t.Run("error creating directory", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		fsMock.EXPECT().MkdirAll("/tmp/foo").Return(errors.New("permission denied"))

		_, err := decorateConfigProvider(DecorateConfigParams{
			Cfg: loggingConfig("/tmp/foo/myfile1.log"),
			FS:  fsMock,
		})
		assert.ErrorContains(t, err, "ensuring log folder")
	})
}

func TestEnsureLogFolder(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Run("no errors", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		fsMock.EXPECT().MkdirAll("/tmp/foo").Return(nil)
		fsMock.EXPECT().MkdirAll("/tmp/bar").Return(nil)

		cfg, err := ensureLogFolder(loggingConfig("/tmp/foo/myfile1.log", "stderr", "/tmp/bar/myfile2.log"), fsMock)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
	})

	t.Run("error creating directory", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		fsMock.EXPECT().MkdirAll("/tmp/foo").Return(errors.New("error creating directory"))

		_, err := ensureLogFolder(loggingConfig("/tmp/foo/myfile1.log", "/tmp/bar/myfile2.log"), fsMock)
		assert.Error(t, err)
	})

	t.Run("malformed logging config", func(t *testing.T) {
		p, err := config.NewStaticProvider(map[string]interface{}{"logging": "verbose"})
		require.NoError(t, err)

		_, err = ensureLogFolder(p, fsmock.NewMockBridgeFS(ctrl))
		assert.ErrorContains(t, err, "loading logging config")
	})
}
