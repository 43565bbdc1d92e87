package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name string
	err  error
	sent []string
}

func (s *recordingSender) Send(_ context.Context, title, message string) error {
	s.sent = append(s.sent, title+": "+message)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{"signal_resolved", " "}, quiet())

	require.NoError(t, n.Notify(context.Background(), "signal_resolved", "Signal resolved", "WIN"))
	require.NoError(t, n.Notify(context.Background(), "sweep_error", "Sweep", "boom"))
	require.NoError(t, n.NotifyAll(context.Background(), "Startup", "ok"))

	assert.Equal(t, []string{"Signal resolved: WIN", "Startup: ok"}, s.sent)
}

func TestNotifier_Cooldown(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, quiet()).WithCooldown(10 * time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, "sweep_error", "Resolution sweep errors", "1 of 3"))
	require.NoError(t, n.Notify(ctx, "sweep_error", "Resolution sweep errors", "2 of 3"))
	require.NoError(t, n.Notify(ctx, "signal_resolved", "Signal resolved", "LOSS"))
	now = now.Add(11 * time.Minute)
	require.NoError(t, n.Notify(ctx, "sweep_error", "Resolution sweep errors", "3 of 3"))

	assert.Equal(t, []string{
		"Resolution sweep errors: 1 of 3",
		"Signal resolved: LOSS",
		"Resolution sweep errors: 3 of 3",
	}, s.sent)
}

func TestNotifier_CollectsSenderErrors(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, quiet())

	err := n.Notify(context.Background(), "sweep_error", "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
	assert.Len(t, good.sent, 1)
	assert.True(t, n.Enabled())
	assert.False(t, NewNotifier(nil, nil, quiet()).Enabled())
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42").WithAPIBase(srv.URL + "/")
	require.NoError(t, s.Send(context.Background(), "Signal resolved", strings.Repeat("é", 3000)))
	assert.Equal(t, "42", got["chat_id"])
	assert.LessOrEqual(t, len(got["text"]), telegramMaxText)
	assert.True(t, utf8.ValidString(got["text"]))
	assert.True(t, strings.HasPrefix(got["text"], "*Signal resolved*\n"))
}

func TestDiscordSender_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	out := clip(strings.Repeat("ü", 10), 9)
	assert.LessOrEqual(t, len(out), 9)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "…"))
}
