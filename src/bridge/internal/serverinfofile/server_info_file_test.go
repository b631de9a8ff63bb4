package serverinfofile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/rd-bridge/src/bridge/internal/fs"
	"github.com/uber/rd-bridge/src/bridge/internal/fs/fsmock"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newProvider(t *testing.T, values map[string]interface{}) config.Provider {
	p, err := config.NewStaticProvider(values)
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		wantErr string
	}{
		{
			name:   "all required params are present",
			values: map[string]interface{}{_configKeyInfoFile: "/tmp/info.json"},
		},
		{
			name:    "missing key",
			values:  map[string]interface{}{"other": "value"},
			wantErr: `missing field "serverInfoFilePath" in config`,
		},
		{
			name:    "wrong type",
			values:  map[string]interface{}{_configKeyInfoFile: map[string]interface{}{"a": 1}},
			wantErr: "getting config field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Params{
				Config:    newProvider(t, tt.values),
				Lifecycle: fxtest.NewLifecycle(t),
				Logger:    zap.NewNop().Sugar(),
				FS:        fs.New(),
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLifecycle(t *testing.T) {
	file := filepath.Join(t.TempDir(), "info.json")
	lc := fxtest.NewLifecycle(t)
	info, err := New(Params{
		Config:    newProvider(t, map[string]interface{}{_configKeyInfoFile: file}),
		Lifecycle: lc,
		Logger:    zap.NewNop().Sugar(),
		FS:        fs.New(),
	})
	require.NoError(t, err)

	lc.RequireStart()
	require.NoError(t, info.UpdateField(FieldAddress, "127.0.0.1:4711"))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var contents map[string]string
	require.NoError(t, json.Unmarshal(data, &contents))
	assert.Equal(t, map[string]string{
		FieldPID:     strconv.Itoa(os.Getpid()),
		FieldAddress: "127.0.0.1:4711",
	}, contents)

	lc.RequireStop()
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateField(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("multiple successful updates", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		m := module{infofile: "/tmp/info.json", fs: fsMock, logger: zap.NewNop().Sugar(), fileContents: make(map[string]string)}

		fsMock.EXPECT().WriteFile("/tmp/info.json", `{"a":"1"}`).Return(nil)
		fsMock.EXPECT().WriteFile("/tmp/info.json", `{"a":"1","b":"2"}`).Return(nil)

		assert.NoError(t, m.UpdateField("a", "1"))
		assert.NoError(t, m.UpdateField("b", "2"))
	})

	t.Run("write error", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		m := module{infofile: "/tmp/info.json", fs: fsMock, logger: zap.NewNop().Sugar(), fileContents: make(map[string]string)}

		fsMock.EXPECT().WriteFile(gomock.Any(), gomock.Any()).Return(errors.New("read-only"))
		assert.ErrorContains(t, m.UpdateField("a", "1"), "creating info file")
	})
}

func TestOnStop(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("file removed", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		fsMock.EXPECT().Remove("/tmp/info.json").Return(nil)
		m := module{infofile: "/tmp/info.json", fs: fsMock, logger: zap.NewNop().Sugar()}
		assert.NoError(t, m.OnStop(context.Background()))
	})

	t.Run("file removal error", func(t *testing.T) {
		fsMock := fsmock.NewMockBridgeFS(ctrl)
		fsMock.EXPECT().Remove("/tmp/info.json").Return(errors.New("permission denied"))
		m := module{infofile: "/tmp/info.json", fs: fsMock, logger: zap.NewNop().Sugar()}
		assert.Error(t, m.OnStop(context.Background()))
	})
}
