package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/logging"
)

// Dispatcher fans a rollout event out to every registered provider.
// The step is a one-shot pipeline run, so delivery is synchronous: the build
// should not finish before the message is out.
type Dispatcher struct {
	providers []Provider
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher with no providers registered.
func NewDispatcher(logger *logging.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Register adds a notification provider after validating its configuration.
func (d *Dispatcher) Register(ctx context.Context, provider Provider) error {
	if err := provider.Validate(ctx); err != nil {
		return fmt.Errorf("%s configuration invalid: %w", provider.Name(), err)
	}
	d.providers = append(d.providers, provider)
	return nil
}

// Providers returns the registered providers.
func (d *Dispatcher) Providers() []Provider {
	out := make([]Provider, len(d.providers))
	copy(out, d.providers)
	return out
}

// Send delivers the event to every provider that supports its type.
// All providers are attempted; failures are aggregated.
func (d *Dispatcher) Send(ctx context.Context, event RolloutEvent) error {
	var errs []error
	for _, provider := range d.providers {
		if !provider.SupportsEvent(event.Type) {
			d.logger.Debug("%s does not handle %s events, skipping", provider.Name(), event.Type)
			continue
		}

		err := provider.Send(ctx, event)
		recordDelivery(provider.Name(), err)
		if err != nil {
			d.logger.Error("%s delivery failed: %v", provider.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
			continue
		}
		d.logger.Info("message sent via %s", provider.Name())
	}
	return errors.Join(errs...)
}
