package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAlert() Alert {
	return Alert{
		Type:    AlertTypeUnhealthy,
		Target:  "aleph-node",
		Title:   "Signals unavailable",
		Message: "5 consecutive ticks without a usable head or synced height",
		Fields: map[string]string{
			"consecutive": "5",
			"last_error":  "dial tcp: connection refused",
		},
	}
}

func countingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func TestNew(t *testing.T) {
	assert.IsType(t, &NoopAlerter{}, New(Config{}, testLogger()))

	multi, ok := New(Config{SlackWebhookURL: "http://slack", WebhookURL: "http://hook", Cooldown: time.Minute}, testLogger()).(*MultiAlerter)
	require.True(t, ok)
	require.Len(t, multi.alerters, 2)
	assert.Equal(t, "slack", alerterName(multi.alerters[0]))
	assert.Equal(t, "webhook", alerterName(multi.alerters[1]))
}

func TestMultiAlerter_Send_AllChannels(t *testing.T) {
	slackSrv, slackReceived := countingServer(t, http.StatusOK)
	webhookSrv, webhookReceived := countingServer(t, http.StatusOK)

	multi := NewMultiAlerter(time.Hour, testLogger(), NewSlackAlerter(slackSrv.URL), NewWebhookAlerter(webhookSrv.URL))

	require.NoError(t, multi.Send(context.Background(), testAlert()))
	assert.Equal(t, int32(1), slackReceived.Load())
	assert.Equal(t, int32(1), webhookReceived.Load())
}

func TestMultiAlerter_CooldownDedup(t *testing.T) {
	srv, received := countingServer(t, http.StatusOK)
	multi := NewMultiAlerter(time.Hour, testLogger(), NewWebhookAlerter(srv.URL))

	require.NoError(t, multi.Send(context.Background(), testAlert()))
	require.NoError(t, multi.Send(context.Background(), testAlert()))

	assert.Equal(t, int32(1), received.Load(), "second UNHEALTHY inside the cooldown is suppressed")

	other := testAlert()
	other.Target = "other-node"
	require.NoError(t, multi.Send(context.Background(), other))
	assert.Equal(t, int32(2), received.Load(), "cooldown is per target")
}

func TestMultiAlerter_CooldownExpiry(t *testing.T) {
	srv, received := countingServer(t, http.StatusOK)
	multi := NewMultiAlerter(time.Minute, testLogger(), NewWebhookAlerter(srv.URL))

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	multi.now = func() time.Time { return now }

	require.NoError(t, multi.Send(context.Background(), testAlert()))
	now = now.Add(time.Minute)
	require.NoError(t, multi.Send(context.Background(), testAlert()))

	assert.Equal(t, int32(2), received.Load())
}

func TestMultiAlerter_RestartAlertsBypassCooldown(t *testing.T) {
	srv, received := countingServer(t, http.StatusOK)
	multi := NewMultiAlerter(time.Hour, testLogger(), NewWebhookAlerter(srv.URL))

	restart := Alert{Type: AlertTypeRestart, Target: "aleph-node", Title: "restarted"}
	require.NoError(t, multi.Send(context.Background(), restart))
	require.NoError(t, multi.Send(context.Background(), restart))

	assert.Equal(t, int32(2), received.Load())
}

func TestMultiAlerter_PartialFailure(t *testing.T) {
	failSrv, _ := countingServer(t, http.StatusInternalServerError)
	goodSrv, goodReceived := countingServer(t, http.StatusOK)

	multi := NewMultiAlerter(time.Hour, testLogger(), NewWebhookAlerter(failSrv.URL), NewWebhookAlerter(goodSrv.URL))

	err := multi.Send(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook returned status 500")
	assert.Equal(t, int32(1), goodReceived.Load())
}

func TestSlackAlerter_PayloadFormat(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	alert := Alert{
		Type:    AlertTypeRestart,
		Target:  "aleph-node",
		Title:   "Node restarted",
		Message: "RESTART(severe-lag)",
		Fields:  map[string]string{"lag": "150", "head": "1000"},
	}
	require.NoError(t, NewSlackAlerter(srv.URL).Send(context.Background(), alert))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(captured, &payload))
	text := payload["text"]

	assert.True(t, strings.HasPrefix(text, ":arrows_counterclockwise: *[RESTART]* aleph-node: Node restarted"))
	assert.Contains(t, text, "RESTART(severe-lag)")
	assert.Less(t, strings.Index(text, "*head*"), strings.Index(text, "*lag*"), "fields are sorted")
}

func TestSlackText_Emoji(t *testing.T) {
	tests := []struct {
		alertType AlertType
		emoji     string
	}{
		{AlertTypeRestart, ":arrows_counterclockwise:"},
		{AlertTypeRestartFailed, ":rotating_light:"},
		{AlertTypeUnhealthy, ":warning:"},
		{AlertTypeRecovery, ":white_check_mark:"},
	}
	for _, tc := range tests {
		t.Run(string(tc.alertType), func(t *testing.T) {
			text := slackText(Alert{Type: tc.alertType, Target: "n", Title: "t", Message: "m"})
			assert.True(t, strings.HasPrefix(text, tc.emoji), text)
		})
	}
}

func TestWebhookAlerter_PayloadFormat(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookAlerter(srv.URL).Send(context.Background(), testAlert()))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(captured, &payload))
	assert.Equal(t, "UNHEALTHY", payload["type"])
	assert.Equal(t, "aleph-node", payload["target"])
	assert.Equal(t, "Signals unavailable", payload["title"])

	fields, ok := payload["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5", fields["consecutive"])

	ts, ok := payload["time"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, 5*time.Second)
}

func TestNoopAlerter(t *testing.T) {
	assert.NoError(t, (&NoopAlerter{}).Send(context.Background(), testAlert()))
}
