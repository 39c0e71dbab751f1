package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
)

const subscriberBuffer = 100

// fanout tracks local subscribers per channel and delivers events to them
// without blocking on slow readers.
type fanout struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.HallEvent]struct{}
}

func newFanout() *fanout {
	return &fanout{subscribers: make(map[string]map[chan *entities.HallEvent]struct{})}
}

// add registers a subscriber and reports whether it is the first on channel
func (f *fanout) add(channel string) (chan *entities.HallEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	first := len(f.subscribers[channel]) == 0
	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.HallEvent]struct{})
	}
	ch := make(chan *entities.HallEvent, subscriberBuffer)
	f.subscribers[channel][ch] = struct{}{}
	return ch, first
}

// remove closes a subscriber and reports whether channel has none left
func (f *fanout) remove(channel string, ch chan *entities.HallEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs, ok := f.subscribers[channel]
	if !ok {
		return false
	}
	if _, ok := subs[ch]; !ok {
		return false
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(f.subscribers, channel)
		return true
	}
	return false
}

// closeChannel closes every subscriber of channel
func (f *fanout) closeChannel(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[channel] {
		close(ch)
	}
	delete(f.subscribers, channel)
}

func (f *fanout) channels() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.subscribers))
	for channel := range f.subscribers {
		out = append(out, channel)
	}
	return out
}

func (f *fanout) deliver(channel string, event *entities.HallEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subscribers[channel] {
		select {
		case ch <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, dropping hall event")
		}
	}
}
