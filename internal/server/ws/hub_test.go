package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/store/memory"
)

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHub_RelaysBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "Server", Domains: []string{"weather"}})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	status := readFrame(t, conn)
	assert.Equal(t, "hub_status", status.Type)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(status.Payload, &meta))
	assert.Equal(t, "server", meta["mode"])

	require.NoError(t, bus.Publish(ctx, domain.ChannelSignalResolved, []byte(`{"signalId":"s1","status":"RESOLVED"}`)))
	got := readFrame(t, conn)
	assert.Equal(t, domain.ChannelSignalResolved, got.Type)
	assert.JSONEq(t, `{"signalId":"s1","status":"RESOLVED"}`, string(got.Payload))

	// Unsubscribed channels are not delivered.
	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelSignalCreated}}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			if c.isSubscribed(domain.ChannelSignalCreated) {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, domain.ChannelSignalCreated, []byte(`{"id":"s2"}`)))
	require.NoError(t, bus.Publish(ctx, domain.ChannelSignalResolved, []byte(`{"signalId":"s3"}`)))
	got = readFrame(t, conn)
	assert.Equal(t, domain.ChannelSignalResolved, got.Type)
	assert.JSONEq(t, `{"signalId":"s3"}`, string(got.Payload))
}
