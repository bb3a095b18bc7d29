package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, h Handler, token string) *Server {
	t.Helper()
	srv := NewServer(h, "127.0.0.1:0", token, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = srv.Start(ctx)
	}()
	require.Eventually(t, func() bool { return srv.BoundAddr() != "" }, 3*time.Second, 5*time.Millisecond,
		"server did not start in time")

	t.Cleanup(func() { srv.Stop(context.Background()) })
	return srv
}

func dial(t *testing.T, srv *Server, token string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, "ws://"+srv.BoundAddr(), token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestWebsocketCall(t *testing.T) {
	srv := startTestServer(t, newTestHandler(), "secret")
	c := dial(t, srv, "secret")

	var resp echoReq
	require.NoError(t, c.Call(context.Background(), "echo", echoReq{Text: "over the wire"}, &resp))
	assert.Equal(t, "over the wire", resp.Text)

	err := c.Call(context.Background(), "fail", nil, nil)
	assert.ErrorIs(t, err, &RemoteError{Domain: "test", Code: 3})
}

func TestWebsocketStream(t *testing.T) {
	h := newTestHandler()
	srv := startTestServer(t, h, "")
	c := dial(t, srv, "")

	_, done := collect(t, c, "hold")
	call := h.next(t)
	require.NoError(t, call.Send(map[string]int{"n": 1}))
	require.NoError(t, call.Send(map[string]int{"n": 2}))
	require.NoError(t, call.Release())

	r := wait(t, done)
	assert.ErrorIs(t, r.err, ErrReleased)
	require.Len(t, r.events, 2)
	var last map[string]int
	require.NoError(t, json.Unmarshal([]byte(r.events[1]), &last))
	assert.Equal(t, 2, last["n"])
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	srv := startTestServer(t, newTestHandler(), "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://"+srv.BoundAddr(), "wrong", nil)
	assert.Error(t, err)
	_, err = Dial(ctx, "ws://"+srv.BoundAddr(), "", nil)
	assert.Error(t, err)
}

func TestServerStopEndsClient(t *testing.T) {
	srv := startTestServer(t, newTestHandler(), "")
	c := dial(t, srv, "")
	require.NoError(t, c.Call(context.Background(), "echo", echoReq{}, nil))

	require.NoError(t, srv.Stop(context.Background()))
	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("client did not notice shutdown")
	}
}
