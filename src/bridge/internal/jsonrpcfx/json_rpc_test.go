package jsonrpcfx

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/rd-bridge/src/bridge/internal/serverinfofile"
	"github.com/uber/rd-bridge/src/bridge/internal/serverinfofile/serverinfofilemock"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
	"github.com/uber/rd-bridge/src/rd-lib/model/ideclient"
	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newProvider(t *testing.T, values map[string]interface{}) config.Provider {
	p, err := config.NewStaticProvider(values)
	require.NoError(t, err)
	return p
}

type nopRWC struct{}

func (nopRWC) Read([]byte) (int, error)    { return 0, io.EOF }
func (nopRWC) Write(p []byte) (int, error) { return len(p), nil }
func (nopRWC) Close() error                { return nil }

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		params  func(t *testing.T) Params
		wantErr string
	}{
		{
			name:    "missing required params",
			params:  func(t *testing.T) Params { return Params{} },
			wantErr: "required parameters are missing",
		},
		{
			name: "all required params are present",
			params: func(t *testing.T) Params {
				return Params{
					Lifecycle: fxtest.NewLifecycle(t),
					Config:    newProvider(t, map[string]interface{}{"jsonrpc": map[string]interface{}{"address": "127.0.0.1:0"}}),
				}
			},
		},
		{
			name: "missing address",
			params: func(t *testing.T) Params {
				return Params{
					Lifecycle: fxtest.NewLifecycle(t),
					Config:    newProvider(t, map[string]interface{}{"jsonrpc": map[string]interface{}{}}),
				}
			},
			wantErr: `missing field "jsonrpc.address" in config`,
		},
		{
			name: "malformed address",
			params: func(t *testing.T) Params {
				return Params{
					Lifecycle: fxtest.NewLifecycle(t),
					Config:    newProvider(t, map[string]interface{}{"jsonrpc": map[string]interface{}{"address": []int{1, 2}}}),
				}
			},
			wantErr: "getting config field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params(t))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterConnectionManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := module{}

	mockConnectionManager := NewMockConnectionManager(ctrl)

	// first call should return no error
	err := m.RegisterConnectionManager(mockConnectionManager)
	assert.NoError(t, err)

	// duplicate call should return error
	err = m.RegisterConnectionManager(mockConnectionManager)
	assert.Error(t, err)
}

func TestServeConn(t *testing.T) {
	ctx := context.Background()

	t.Run("no connection manager registered", func(t *testing.T) {
		m := &module{logger: zap.NewNop().Sugar()}
		conn := protocol.NewConnection(nopRWC{}, protocol.RoleOwner, ide.Snapshot.Info())

		assert.Error(t, m.ServeConn(ctx, conn))
		assert.Equal(t, protocol.StateDisconnected, conn.State())
	})

	t.Run("failed NewConnection", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cm := NewMockConnectionManager(ctrl)
		cm.EXPECT().NewConnection(ctx, gomock.Any()).Return(uuid.Nil, errors.New("sample error"))

		m := &module{logger: zap.NewNop().Sugar(), connectionMgr: cm}
		conn := protocol.NewConnection(nopRWC{}, protocol.RoleOwner, ide.Snapshot.Info())

		assert.EqualError(t, m.ServeConn(ctx, conn), "sample error")
		assert.Equal(t, protocol.StateDisconnected, conn.State())
	})
}

// bindServer stands in for the handler: it serves a fixed tooltip on every connection.
func bindServer(conn *protocol.Connection) (uuid.UUID, error) {
	server := ide.NewServer(conn)
	server.Features.GetTooltip.Set(func(_ context.Context, q ide.ToolTipQuery) (ide.ToolTipResult, error) {
		return ide.ToolTipResult{Text: "val " + q.Names[len(q.Names)-1] + ": int"}, nil
	})
	server.Features.GetXmlDocText.Set(func(context.Context, ide.XmlDoc) (ide.XmlDocText, error) {
		return ide.XmlDocText{}, nil
	})
	server.Features.FormatDocument.Set(func(_ context.Context, req ide.FormatRequest) (ide.FormatResult, error) {
		return ide.FormatResult{Text: req.Text}, nil
	})
	return conn.ID(), server.Start()
}

func dial(t *testing.T, addr string) *ideclient.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := protocol.Dial(ctx, "tcp", addr, protocol.RoleConsumer, ideclient.Snapshot.Info())
	require.NoError(t, err)
	client := ideclient.NewClient(conn)
	require.NoError(t, client.Connect(ctx))
	return client
}

func TestServeConnections(t *testing.T) {
	ctrl := gomock.NewController(t)
	lc := fxtest.NewLifecycle(t)

	var addr string
	info := serverinfofilemock.NewMockServerInfoFile(ctrl)
	info.EXPECT().UpdateField(serverinfofile.FieldAddress, gomock.Any()).DoAndReturn(func(_, value string) error {
		addr = value
		return nil
	})

	removed := make(chan uuid.UUID, 2)
	cm := NewMockConnectionManager(ctrl)
	cm.EXPECT().NewConnection(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, conn *protocol.Connection) (uuid.UUID, error) {
		return bindServer(conn)
	}).Times(2)
	cm.EXPECT().RemoveConnection(gomock.Any(), gomock.Any()).Do(func(_ context.Context, id uuid.UUID) {
		removed <- id
	}).Times(2)

	m, err := New(Params{
		Config:         newProvider(t, map[string]interface{}{"jsonrpc": map[string]interface{}{"address": "127.0.0.1:0"}}),
		Lifecycle:      lc,
		Logger:         zap.NewNop().Sugar(),
		ServerInfoFile: info,
	})
	require.NoError(t, err)
	require.NoError(t, m.RegisterConnectionManager(cm))
	assert.Nil(t, m.Addr())

	lc.RequireStart()
	require.NotNil(t, m.Addr())
	assert.Equal(t, m.Addr().String(), addr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := dial(t, addr)
	res, err := first.Features.GetTooltip(ctx, ideclient.ToolTipQuery{URI: "file:///a.fs", Names: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "val x: int", res.Text)

	// A client going away ends its session.
	require.NoError(t, first.Conn().Close())
	select {
	case <-removed:
	case <-ctx.Done():
		t.Fatal("session of the first client was not removed")
	}

	// Stopping disconnects the remaining clients.
	second := dial(t, addr)
	lc.RequireStop()
	select {
	case <-removed:
	case <-ctx.Done():
		t.Fatal("session of the second client was not removed")
	}
	<-second.Conn().Done()
}

func TestOnStart(t *testing.T) {
	t.Run("invalid address", func(t *testing.T) {
		m := &module{Address: "127.0.0.1:-1", logger: zap.NewNop().Sugar()}
		assert.ErrorContains(t, m.OnStart(context.Background()), "listening on")
	})

	t.Run("server info file fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		info := serverinfofilemock.NewMockServerInfoFile(ctrl)
		info.EXPECT().UpdateField(serverinfofile.FieldAddress, gomock.Any()).Return(errors.New("read-only"))

		m := &module{Address: "127.0.0.1:0", logger: zap.NewNop().Sugar(), serverInfoFile: info}
		assert.EqualError(t, m.OnStart(context.Background()), "read-only")
		assert.Nil(t, m.Addr())
	})

	t.Run("stop before start", func(t *testing.T) {
		m := &module{logger: zap.NewNop().Sugar()}
		assert.NoError(t, m.OnStop(context.Background()))
	})
}
