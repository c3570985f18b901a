package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades every request and echoes messages back.
func echoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConn_SendReceiveRoundTrip(t *testing.T) {
	c := NewConn(&ConnConfig{URL: echoServer(t)})
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	require.True(t, c.IsConnected())
	require.NoError(t, c.Send(map[string]string{"type": "frame", "data": "abc"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"frame","data":"abc"}`, string(data))
}

func TestConn_ConnectFailure(t *testing.T) {
	c := NewConn(&ConnConfig{
		URL:         "ws://127.0.0.1:1/ws",
		DialTimeout: 500 * time.Millisecond,
	})
	assert.Error(t, c.Connect(context.Background()))
}

func TestConn_SendBeforeConnect(t *testing.T) {
	c := NewConn(&ConnConfig{URL: "ws://example.com/ws"})
	assert.Error(t, c.Send("hello"))
}

func TestConn_ReceiveCancel(t *testing.T) {
	c := NewConn(&ConnConfig{URL: echoServer(t)})
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Receive(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Receive did not honor cancellation")
	}
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	c := NewConn(&ConnConfig{URL: echoServer(t)})
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.NoError(t, c.Close())

	assert.Error(t, c.Send("after close"))
	assert.Error(t, c.Connect(context.Background()), "a closed handle is never reused")
}

func TestConnConfig_Defaults(t *testing.T) {
	cfg := ConnConfig{URL: "ws://example.com/ws"}
	cfg.defaults()

	assert.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
	assert.Equal(t, DefaultWriteWait, cfg.WriteWait)
	assert.Equal(t, int64(DefaultMaxMessageSize), cfg.MaxMessageSize)
	assert.Equal(t, DefaultCloseGracePeriod, cfg.CloseGracePeriod)
}
