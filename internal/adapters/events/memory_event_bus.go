package events

import (
	"context"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
)

// MemoryEventBus delivers hall events within a single process. It is used
// when Redis is disabled.
type MemoryEventBus struct {
	local  *fanout
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &MemoryEventBus{local: newFanout(), ctx: ctx, cancel: cancel}
}

// Publish delivers the event to current subscribers
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.HallEvent) error {
	if err := b.ctx.Err(); err != nil {
		return err
	}
	b.local.deliver(channel, event)
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.HallEvent, error) {
	eventChan, _ := b.local.add(channel)
	go func() {
		select {
		case <-ctx.Done():
			b.local.remove(channel, eventChan)
		case <-b.ctx.Done():
		}
	}()
	return eventChan, nil
}

// Unsubscribe drops every subscriber of a channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.local.closeChannel(channel)
	return nil
}

// Close closes all subscriptions
func (b *MemoryEventBus) Close() error {
	b.cancel()
	for _, channel := range b.local.channels() {
		b.local.closeChannel(channel)
	}
	return nil
}
