package cmd

import (
	"fmt"

	"github.com/nurtura/nurtura/pkg/eventbus"
)

// NewEventBus creates the audit event bus for the given provider. The
// in-process bus is the only provider today; the audit trail stays inside
// the service boundary.
func NewEventBus(provider string) (eventbus.EventBus, error) {
	switch provider {
	case "", "memory":
		return eventbus.NewInProcessEventBus(), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %q", provider)
	}
}
