package notify

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"braillekbd/config"
)

type webhook struct {
	mu       sync.Mutex
	messages []SlackMessage
	status   int
}

func newWebhook(t *testing.T) (*webhook, *httptest.Server) {
	t.Helper()
	w := &webhook{status: http.StatusOK}
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var msg SlackMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		w.messages = append(w.messages, msg)
		status := w.status
		w.mu.Unlock()
		rw.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return w, ts
}

func (w *webhook) received() []SlackMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]SlackMessage(nil), w.messages...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSlack_Disabled(t *testing.T) {
	n := NewSlackNotifier(&config.SlackConfig{}, "host-1", quietLogger())
	require.False(t, n.IsEnabled())
	require.NoError(t, n.NotifyStartup(1, 1))
	require.NoError(t, n.NotifyFault("desk", "/dev/ttyACM0", errors.New("gone")))
}

func TestSlack_Messages(t *testing.T) {
	hook, ts := newWebhook(t)
	n := NewSlackNotifier(&config.SlackConfig{
		WebhookURL:     ts.URL,
		NotifyStartup:  true,
		NotifyShutdown: true,
		NotifyErrors:   true,
	}, "host-1", quietLogger())

	require.NoError(t, n.NotifyStartup(2, 1))
	require.NoError(t, n.NotifyFault("desk", "/dev/ttyACM0", errors.New("device reports readiness to read but returned no data")))
	require.NoError(t, n.NotifyShutdown(120, 1, 90*time.Second))

	msgs := hook.received()
	require.Len(t, msgs, 3)

	start := msgs[0].Attachments[0]
	require.Equal(t, "warning", start.Color)
	require.Equal(t, "1/2 connected", start.Fields[1].Value)

	fault := msgs[1].Attachments[0]
	require.Equal(t, "danger", fault.Color)
	require.Equal(t, "desk", fault.Fields[1].Value)
	require.Equal(t, "/dev/ttyACM0", fault.Fields[2].Value)

	stop := msgs[2].Attachments[0]
	require.Equal(t, "1m 30s", stop.Fields[1].Value)
	require.Equal(t, "120", stop.Fields[2].Value)
}

func TestSlack_EventToggles(t *testing.T) {
	hook, ts := newWebhook(t)
	n := NewSlackNotifier(&config.SlackConfig{WebhookURL: ts.URL, NotifyErrors: true}, "host-1", quietLogger())

	require.NoError(t, n.NotifyStartup(1, 1))
	require.NoError(t, n.NotifyShutdown(0, 0, time.Second))
	require.Empty(t, hook.received())
}

func TestSlack_FaultThrottle(t *testing.T) {
	hook, ts := newWebhook(t)
	n := NewSlackNotifier(&config.SlackConfig{
		WebhookURL:       ts.URL,
		NotifyErrors:     true,
		FaultIntervalSec: 60,
	}, "host-1", quietLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	lost := errors.New("input/output error")

	require.NoError(t, n.NotifyFault("desk", "/dev/ttyACM0", lost))
	require.NoError(t, n.NotifyFault("desk", "/dev/ttyACM0", lost))
	require.NoError(t, n.NotifyFault("lab", "/dev/ttyACM1", lost))
	require.Len(t, hook.received(), 2)

	now = now.Add(61 * time.Second)
	require.NoError(t, n.NotifyFault("desk", "/dev/ttyACM0", lost))
	require.Len(t, hook.received(), 3)
}

func TestSlack_NonOKStatus(t *testing.T) {
	hook, ts := newWebhook(t)
	hook.status = http.StatusInternalServerError
	n := NewSlackNotifier(&config.SlackConfig{WebhookURL: ts.URL, NotifyStartup: true}, "host-1", quietLogger())

	require.ErrorContains(t, n.NotifyStartup(1, 1), "non-OK status: 500")
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "5s", formatDuration(5*time.Second))
	require.Equal(t, "2m 0s", formatDuration(2*time.Minute))
	require.Equal(t, "1h 1m 1s", formatDuration(time.Hour+time.Minute+time.Second+200*time.Millisecond))
}
