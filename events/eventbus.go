package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mtlnet/mtl/logx"
)

type SubscriberID string

// Each subscriber channel buffers this many events. Publish drops
// events for a subscriber whose buffer is full rather than block the
// commit path.
const subscriberBuffer = 50

// EventBus fans chain events out to subscribers. Publishing never
// blocks; a subscriber that stops draining its channel misses events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[SubscriberID]chan ChainEvent
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[SubscriberID]chan ChainEvent)}
}

// Subscribe registers a new subscriber and returns its channel. IDs are
// uuid-v7, so they sort by subscription time.
func (eb *EventBus) Subscribe() (SubscriberID, chan ChainEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := SubscriberID(uuid.Must(uuid.NewV7()).String())
	ch := make(chan ChainEvent, subscriberBuffer)
	eb.subs[id] = ch

	logx.Info("EVENTBUS", fmt.Sprintf("Subscriber %s joined, %d active", id, len(eb.subs)))
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. It reports
// false when the ID is unknown.
func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch, ok := eb.subs[id]
	if !ok {
		logx.Warn("EVENTBUS", fmt.Sprintf("Unsubscribe for unknown subscriber %s", id))
		return false
	}
	delete(eb.subs, id)
	close(ch)

	logx.Info("EVENTBUS", fmt.Sprintf("Subscriber %s left, %d active", id, len(eb.subs)))
	return true
}

// Publish delivers an event to every subscriber with buffer space and
// drops it for the rest.
func (eb *EventBus) Publish(event ChainEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.subs) == 0 {
		return
	}
	for id, ch := range eb.subs {
		select {
		case ch <- event:
		default:
			logx.Warn("EVENTBUS", fmt.Sprintf("Dropped %s event for slow subscriber %s", event.Type(), id))
		}
	}
}

// GetTotalSubscriptions returns the number of active subscribers.
func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subs)
}

// HasSubscriber reports whether the given subscription is active.
func (eb *EventBus) HasSubscriber(id SubscriberID) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	_, ok := eb.subs[id]
	return ok
}
