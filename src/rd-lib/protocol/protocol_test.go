package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const _echoSchema = `
name: EchoModel
version: 3
compatibleSince: 2
root:
  id: 1
  name: EchoModel
  properties:
    - {id: 1, name: Status, type: string}
  requests:
    - {id: 2, name: Echo, request: string, response: string}
    - {id: 3, name: Unset, request: void, response: void}
  signals:
    - {id: 4, name: Tick, type: int32}
`

var (
	_status = PropertyTag(1, 1)
	_echo   = RequestTag(1, 2)
	_unset  = RequestTag(1, 3)
	_tick   = SignalTag(1, 4)

	_info = schema.MustParse(_echoSchema).Info()
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPair(t *testing.T, ownerInfo, consumerInfo schema.Info) (owner, consumer *Connection) {
	a, b := net.Pipe()
	owner = NewConnection(a, RoleOwner, ownerInfo)
	consumer = NewConnection(b, RoleConsumer, consumerInfo)
	t.Cleanup(func() {
		owner.Close()
		consumer.Close()
	})
	return owner, consumer
}

func connect(t *testing.T, owner, consumer *Connection) {
	owner.Start()
	consumer.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, consumer.Handshake(ctx))
	select {
	case <-owner.Ready():
	case <-ctx.Done():
		t.Fatal("owner never became ready")
	}
}

func TestTag(t *testing.T) {
	tests := []struct {
		method  string
		want    Tag
		wantErr bool
	}{
		{method: "request:1/2", want: RequestTag(1, 2)},
		{method: "signal:7/1", want: SignalTag(7, 1)},
		{method: "property:3/9", want: PropertyTag(3, 9)},
		{method: "$/heartbeat", wantErr: true},
		{method: "event:1/2", wantErr: true},
		{method: "request:1", wantErr: true},
		{method: "request:x/2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := ParseTag(tt.method)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.method, got.Method())
		})
	}
}

func TestNegotiate(t *testing.T) {
	base := schema.Info{Name: "M", Version: 3, CompatibleSince: 2, Fingerprint: "aaaa"}

	tests := []struct {
		name     string
		consumer schema.Info
		wantErr  bool
	}{
		{name: "identical", consumer: base},
		{name: "older overlapping", consumer: schema.Info{Name: "M", Version: 2, CompatibleSince: 1, Fingerprint: "bbbb"}},
		{name: "newer overlapping", consumer: schema.Info{Name: "M", Version: 5, CompatibleSince: 3, Fingerprint: "cccc"}},
		{name: "same version different snapshot", consumer: schema.Info{Name: "M", Version: 3, CompatibleSince: 2, Fingerprint: "dddd"}, wantErr: true},
		{name: "too old", consumer: schema.Info{Name: "M", Version: 1, CompatibleSince: 1, Fingerprint: "eeee"}, wantErr: true},
		{name: "too new", consumer: schema.Info{Name: "M", Version: 6, CompatibleSince: 4, Fingerprint: "ffff"}, wantErr: true},
		{name: "different model", consumer: schema.Info{Name: "N", Version: 3, CompatibleSince: 2, Fingerprint: "aaaa"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Negotiate(base, tt.consumer)
			if tt.wantErr {
				assert.True(t, IsHandshakeFailure(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHandshake(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		owner, consumer := newPair(t, _info, _info)
		assert.Equal(t, StateConnecting, consumer.State())

		connect(t, owner, consumer)
		assert.Equal(t, StateConnected, owner.State())
		assert.Equal(t, StateConnected, consumer.State())
		assert.Equal(t, _info, owner.Remote())
		assert.Equal(t, _info, consumer.Remote())
	})

	t.Run("skewed snapshot is rejected", func(t *testing.T) {
		skewed := _info
		skewed.Fingerprint = "0000"
		owner, consumer := newPair(t, _info, skewed)
		owner.Start()
		consumer.Start()

		err := consumer.Handshake(context.Background())
		require.Error(t, err)
		assert.True(t, IsHandshakeFailure(err))
		assert.Contains(t, err.Error(), "different snapshots")

		<-owner.Done()
		<-consumer.Done()
		assert.True(t, IsHandshakeFailure(owner.Err()))
	})

	t.Run("owner refuses requests before the handshake", func(t *testing.T) {
		owner, consumer := newPair(t, _info, _info)
		NewEndpoint[string, string](owner, _echo).Set(func(ctx context.Context, req string) (string, error) { return req, nil })
		owner.Start()
		consumer.Start()

		err := consumer.call(context.Background(), _echo.Method(), "hi", nil)
		var rpcErr *jsonrpc2.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, CodeHandshakeRequired, rpcErr.Code)
	})

	t.Run("consumer refuses to send before the handshake", func(t *testing.T) {
		_, consumer := newPair(t, _info, _info)
		assert.True(t, IsHandshakeFailure(consumer.Notify(_tick, 1)))
		assert.True(t, IsHandshakeFailure(consumer.Call(context.Background(), _echo, "x", nil)))
	})

	t.Run("only the consumer starts a handshake", func(t *testing.T) {
		owner, _ := newPair(t, _info, _info)
		assert.Error(t, owner.Handshake(context.Background()))
	})
}

func TestCall(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)
	echo := NewEndpoint[string, string](owner, _echo)
	echo.Set(func(ctx context.Context, req string) (string, error) {
		if req == "fail" {
			return "", errors.New("boom")
		}
		if req == "panic" {
			panic("bad handler")
		}
		return "echo:" + req, nil
	})
	unset := NewEndpoint[Void, Void](owner, _unset)
	connect(t, owner, consumer)
	ctx := context.Background()

	got, err := Call[string, string](ctx, consumer, _echo, "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", got)

	_, err = Call[string, string](ctx, consumer, _echo, "fail")
	assert.ErrorContains(t, err, "boom")

	_, err = Call[string, string](ctx, consumer, _echo, "panic")
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.InternalError, rpcErr.Code)

	assert.False(t, unset.IsSet())
	_, err = Call[Void, Void](ctx, consumer, _unset, Void{})
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.MethodNotFound, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "handler not registered")

	_, err = Call[string, string](ctx, consumer, RequestTag(9, 9), "x")
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.MethodNotFound, rpcErr.Code)

	assert.Error(t, consumer.Call(ctx, _tick, 1, nil))
	assert.NoError(t, consumer.Ping(ctx))
}

func TestResponsesMatchByCorrelationID(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)
	release := make(chan struct{})
	NewEndpoint[string, string](owner, _echo).Set(func(ctx context.Context, req string) (string, error) {
		if req == "slow" {
			select {
			case <-release:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return req, nil
	})
	connect(t, owner, consumer)

	slow := make(chan string, 1)
	go func() {
		got, _ := Call[string, string](context.Background(), consumer, _echo, "slow")
		slow <- got
	}()

	got, err := Call[string, string](context.Background(), consumer, _echo, "fast")
	require.NoError(t, err)
	assert.Equal(t, "fast", got)

	close(release)
	assert.Equal(t, "slow", <-slow)
}

func TestSignalOrdering(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)

	const n = 200
	var mu sync.Mutex
	var seen []int32
	done := make(chan struct{})
	NewSignal[int32](owner, _tick).Advise(func(v int32) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, v)
		if len(seen) == n {
			close(done)
		}
	})
	connect(t, owner, consumer)

	tick := NewSignal[int32](consumer, _tick)
	for i := int32(0); i < n; i++ {
		require.NoError(t, tick.Fire(i))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("signals were not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range seen {
		assert.Equal(t, int32(i), v)
	}
}

func TestSignalUnsubscribe(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)
	got := make(chan int32, 10)
	unsubscribe := NewSignal[int32](consumer, _tick).Advise(func(v int32) { got <- v })
	connect(t, owner, consumer)

	tick := NewSignal[int32](owner, _tick)
	require.NoError(t, tick.Fire(1))
	assert.Equal(t, int32(1), <-got)

	unsubscribe()
	require.NoError(t, tick.Fire(2))
	require.NoError(t, owner.Ping(context.Background()))
	assert.Empty(t, got)
}

func TestDisconnectFailsPendingCalls(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)
	entered := make(chan struct{})
	NewEndpoint[string, string](owner, _echo).Set(func(ctx context.Context, req string) (string, error) {
		close(entered)
		<-ctx.Done()
		return "", ctx.Err()
	})
	connect(t, owner, consumer)

	errs := make(chan error, 1)
	go func() {
		_, err := Call[string, string](context.Background(), consumer, _echo, "hang")
		errs <- err
	}()
	<-entered
	require.NoError(t, owner.Close())

	select {
	case err := <-errs:
		assert.True(t, IsChannelClosed(err))
	case <-time.After(5 * time.Second):
		t.Fatal("pending call was not failed")
	}

	<-consumer.Done()
	assert.Equal(t, StateDisconnected, consumer.State())
	assert.True(t, IsChannelClosed(NewSignal[int32](consumer, _tick).Fire(1)))
	assert.True(t, IsChannelClosed(consumer.Ping(context.Background())))
}

func TestCancellation(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)
	stopped := make(chan error, 1)
	NewEndpoint[string, string](owner, _echo).Set(func(ctx context.Context, req string) (string, error) {
		if req != "hang" {
			return req, nil
		}
		<-ctx.Done()
		stopped <- ctx.Err()
		time.Sleep(10 * time.Millisecond)
		return "late", nil
	})
	connect(t, owner, consumer)

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := Call[string, string](ctx, consumer, _echo, "hang")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, <-stopped, context.Canceled)
	})

	t.Run("explicit cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := Call[string, string](ctx, consumer, _echo, "hang")
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, <-stopped, context.Canceled)
	})

	got, err := Call[string, string](context.Background(), consumer, _echo, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", got)
}

func TestCancelParams(t *testing.T) {
	id := jsonrpc2.NewStringID("7")
	n, err := jsonrpc2.NewNotification(MethodCancel, cancelParams{ID: &id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7"}`, string(n.Params()))

	var decoded cancelParams
	require.NoError(t, json.Unmarshal(n.Params(), &decoded))
	require.NotNil(t, decoded.ID)
	assert.Equal(t, id, *decoded.ID)
}

func TestProperty(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)
	ownerStatus := NewProperty[string](owner, _status)
	consumerStatus := NewProperty[string](consumer, _status)
	require.NoError(t, ownerStatus.Set("starting"))

	changes := make(chan string, 10)
	consumerStatus.Watch(func(v string) { changes <- v })
	connect(t, owner, consumer)

	assert.Equal(t, "starting", <-changes)

	require.NoError(t, ownerStatus.Set("ready"))
	assert.Equal(t, "ready", <-changes)

	ownerChanges := make(chan string, 10)
	cancel := ownerStatus.Watch(func(v string) { ownerChanges <- v })
	require.NoError(t, consumerStatus.Set("override"))
	assert.Equal(t, "override", <-changes)
	assert.Equal(t, "override", <-ownerChanges)
	assert.Equal(t, "override", ownerStatus.Value())
	cancel()
}

func TestPropertyConflicts(t *testing.T) {
	owner, consumer := newPair(t, _info, _info)
	ownerSide := NewProperty[string](owner, _status)
	consumerSide := NewProperty[string](consumer, _status)

	update := func(clock uint64, fromOwner bool, v string) json.RawMessage {
		raw, err := json.Marshal(propertyUpdate[string]{Clock: clock, Owner: fromOwner, Value: v})
		require.NoError(t, err)
		return raw
	}

	ownerSide.clock, ownerSide.value, ownerSide.hasValue = 2, "mine", true
	consumerSide.clock, consumerSide.value, consumerSide.hasValue = 2, "theirs", true

	ownerSide.receive(update(2, false, "theirs"))
	assert.Equal(t, "mine", ownerSide.Value(), "owner keeps its value on a tie")

	consumerSide.receive(update(2, true, "mine"))
	assert.Equal(t, "mine", consumerSide.Value(), "consumer yields to the owner on a tie")

	consumerSide.receive(update(1, true, "stale"))
	assert.Equal(t, "mine", consumerSide.Value())

	ownerSide.receive(update(3, false, "newer"))
	assert.Equal(t, "newer", ownerSide.Value())
}

func TestPendingCall(t *testing.T) {
	p := NewPendingCall(jsonrpc2.NewStringID("1"), "request:1/2", time.Time{})
	assert.Equal(t, OutcomePending, p.Outcome())

	require.NoError(t, p.Resolve(OutcomeValue, json.RawMessage(`"first"`), nil))
	err := p.Resolve(OutcomeError, nil, errors.New("second"))
	var already *AlreadyResolvedError
	require.ErrorAs(t, err, &already)

	raw, err := p.Result()
	assert.NoError(t, err)
	assert.Equal(t, `"first"`, string(raw))
	assert.Equal(t, OutcomeValue, p.Outcome())
	<-p.Done()
}

func TestDoubleResolutionIsReported(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	a, b := net.Pipe()
	defer b.Close()
	c := NewConnection(a, RoleConsumer, _info, WithLogger(zap.New(core).Sugar()))
	defer c.Close()

	p := NewPendingCall(jsonrpc2.NewStringID("7"), "request:1/2", time.Time{})
	c.settle(p, OutcomeValue, nil, nil)
	c.settle(p, OutcomeTimedOut, nil, nil)

	assert.Equal(t, OutcomeValue, p.Outcome())
	assert.Equal(t, 1, recorded.FilterMessage("pending call resolved twice").Len())
}

func TestDial(t *testing.T) {
	t.Run("connect error", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		_, err = Dial(context.Background(), "tcp", addr, RoleConsumer, _info)
		var connectErr *ConnectError
		require.ErrorAs(t, err, &connectErr)
		assert.Equal(t, addr, connectErr.Address)
	})

	t.Run("success", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		accepted := make(chan *Connection, 1)
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			owner := NewConnection(conn, RoleOwner, _info)
			NewEndpoint[string, string](owner, _echo).Set(func(ctx context.Context, req string) (string, error) { return req, nil })
			owner.Start()
			accepted <- owner
		}()

		consumer, err := Dial(context.Background(), "tcp", ln.Addr().String(), RoleConsumer, _info)
		require.NoError(t, err)
		defer consumer.Close()
		consumer.Start()
		require.NoError(t, consumer.Handshake(context.Background()))

		got, err := Call[string, string](context.Background(), consumer, _echo, "tcp")
		require.NoError(t, err)
		assert.Equal(t, "tcp", got)
		(<-accepted).Close()
	})
}
