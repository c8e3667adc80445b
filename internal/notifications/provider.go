// Package notifications delivers rollout announcements to chat webhooks.
package notifications

import (
	"context"
)

// Provider defines the interface for sending rollout notifications.
type Provider interface {
	// Name returns the provider name (e.g., "teams", "slack", "webhook").
	Name() string

	// Send sends a notification for the given rollout event.
	Send(ctx context.Context, event RolloutEvent) error

	// SupportsEvent returns true if this provider handles the given event type.
	SupportsEvent(eventType EventType) bool

	// Validate checks if the provider configuration is valid.
	Validate(ctx context.Context) error
}
