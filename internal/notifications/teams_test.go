package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func increaseEvent() RolloutEvent {
	return RolloutEvent{
		Type:            EventTypeIncrease,
		PackageName:     "com.example.app",
		Track:           "production",
		ReleaseName:     "1.2.3",
		VersionCodes:    []int64{123},
		CurrentFraction: 0.2,
		NextFraction:    0.5,
		Timestamp:       time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestTeamsProvider_Name(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "teams", NewTeamsProvider(TeamsConfig{}).Name())
}

func TestTeamsProvider_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  TeamsConfig
		wantErr string
	}{
		{
			name:   "valid config",
			config: TeamsConfig{WebhookURL: "https://example.webhook.office.com/hook"},
		},
		{
			name:    "missing URL",
			config:  TeamsConfig{},
			wantErr: "webhook URL is required",
		},
		{
			name:    "invalid URL",
			config:  TeamsConfig{WebhookURL: "not-a-url"},
			wantErr: "invalid webhook URL",
		},
		{
			name: "halt action without URL",
			config: TeamsConfig{
				WebhookURL:  "https://example.webhook.office.com/hook",
				HaltActions: []HaltAction{{Title: "Halt"}},
			},
			wantErr: "has no URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewTeamsProvider(tt.config).Validate(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTeamsProvider_BuildMessage(t *testing.T) {
	t.Parallel()

	provider := NewTeamsProvider(TeamsConfig{
		WebhookURL:       "https://example.webhook.office.com/hook",
		IncreaseTimeHint: "at 11 AM today",
		Note:             "Sign in with your primary account before halting.",
		HaltActions: []HaltAction{
			{Title: "Click here to halt", URL: "https://play.google.com/console/track", IconURL: "https://example.com/icon.png"},
		},
	})

	message := provider.BuildMessage(increaseEvent())

	assert.Equal(t, "message", message["type"])
	attachments, ok := message["attachments"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	assert.Equal(t, adaptiveCardContentType, attachments[0]["contentType"])

	card, ok := attachments[0]["content"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "AdaptiveCard", card["type"])
	assert.Equal(t, adaptiveCardVersion, card["version"])

	raw, err := json.Marshal(card)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "will automatically increase from 20% to 50% at 11 AM today")
	assert.Contains(t, body, defaultCardTitle)
	assert.Contains(t, body, "Sign in with your primary account")
	assert.Contains(t, body, "Action.OpenUrl")
	assert.Contains(t, body, "Click here to halt")
	assert.Contains(t, body, "version codes: [123]")
}

func TestTeamsProvider_BuildMessage_Ceiling(t *testing.T) {
	t.Parallel()

	provider := NewTeamsProvider(TeamsConfig{WebhookURL: "https://example.webhook.office.com/hook"})

	event := increaseEvent()
	event.Type = EventTypeCeiling
	event.CurrentFraction = 1.0
	event.NextFraction = 0

	raw, err := json.Marshal(provider.BuildMessage(event))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "at or above the highest configured rollout step")
	assert.NotContains(t, string(raw), "will automatically increase")
}

func TestTeamsProvider_Send_AcceptsOKAndAccepted(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusAccepted} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			body, _ := io.ReadAll(r.Body)
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(body, &payload))
			assert.Equal(t, "message", payload["type"])

			w.WriteHeader(status)
		}))

		provider := NewTeamsProvider(TeamsConfig{WebhookURL: server.URL})
		err := provider.Send(context.Background(), increaseEvent())
		assert.NoError(t, err, "status %d should be accepted", status)
		server.Close()
	}
}

func TestTeamsProvider_Send_RetriesOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewTeamsProvider(TeamsConfig{
		WebhookURL: server.URL,
		Retry:      &RetryConfig{MaxAttempts: 3, Backoff: "fixed", InitialWait: 10 * time.Millisecond},
	})

	require.NoError(t, provider.Send(context.Background(), increaseEvent()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTeamsProvider_Send_FailsAfterRetries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewTeamsProvider(TeamsConfig{
		WebhookURL: server.URL,
		Retry:      &RetryConfig{MaxAttempts: 2, Backoff: "fixed", InitialWait: 10 * time.Millisecond},
	})

	err := provider.Send(context.Background(), increaseEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "status 503")
}

func TestTeamsProvider_Send_RejectionNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	provider := NewTeamsProvider(TeamsConfig{
		WebhookURL: server.URL,
		Retry:      &RetryConfig{MaxAttempts: 3, Backoff: "fixed", InitialWait: 10 * time.Millisecond},
	})

	err := provider.Send(context.Background(), increaseEvent())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "status 400")
}
