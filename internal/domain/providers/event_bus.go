package providers

import (
	"context"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to hall events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.HallEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.HallEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelHall carries every change to the waiting-hall board
const EventChannelHall = "clinic:hall"
