package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/logging"
)

type stubProvider struct {
	name        string
	events      []string
	sendErr     error
	validateErr error
	sent        []RolloutEvent
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Send(ctx context.Context, event RolloutEvent) error {
	s.sent = append(s.sent, event)
	return s.sendErr
}

func (s *stubProvider) SupportsEvent(eventType EventType) bool {
	return supportsEvent(s.events, eventType)
}

func (s *stubProvider) Validate(ctx context.Context) error { return s.validateErr }

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(logging.New(false, true))
}

func TestDispatcher_Register_RejectsInvalidProvider(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher()
	err := d.Register(context.Background(), &stubProvider{name: "bad", validateErr: errors.New("no URL")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad configuration invalid")
	assert.Empty(t, d.Providers())
}

func TestDispatcher_Send_FansOut(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher()
	first := &stubProvider{name: "teams"}
	second := &stubProvider{name: "slack"}
	require.NoError(t, d.Register(context.Background(), first))
	require.NoError(t, d.Register(context.Background(), second))

	require.NoError(t, d.Send(context.Background(), increaseEvent()))
	assert.Len(t, first.sent, 1)
	assert.Len(t, second.sent, 1)
}

func TestDispatcher_Send_SkipsUnsupportedEvents(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher()
	picky := &stubProvider{name: "teams", events: []string{string(EventTypeCeiling)}}
	require.NoError(t, d.Register(context.Background(), picky))

	require.NoError(t, d.Send(context.Background(), increaseEvent()))
	assert.Empty(t, picky.sent)
}

func TestDispatcher_Send_AggregatesFailures(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher()
	failing := &stubProvider{name: "teams", sendErr: errors.New("status 500")}
	working := &stubProvider{name: "slack"}
	require.NoError(t, d.Register(context.Background(), failing))
	require.NoError(t, d.Register(context.Background(), working))

	err := d.Send(context.Background(), increaseEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teams: status 500")
	assert.Len(t, working.sent, 1, "remaining providers still run after a failure")
}
