package messaging

import (
	"errors"
	"fmt"
	"sync"
)

var ErrSubscriberFull = errors.New("subscriber channel is full")

// SimpleBroker implements Broker with non-blocking sends. A slow subscriber
// misses events instead of stalling the episode.
type SimpleBroker struct {
	subscribers map[string]chan<- Event
	dropped     map[string]int
	mu          sync.RWMutex
}

// NewBroker creates an empty broker.
func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]chan<- Event),
		dropped:     make(map[string]int),
	}
}

// Publish sends ev to every subscriber. Every subscriber is tried; if any of
// them was full the returned error names them.
func (b *SimpleBroker) Publish(ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var full []string
	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped[id]++
			full = append(full, id)
		}
	}
	if len(full) > 0 {
		return fmt.Errorf("%w: %v", ErrSubscriberFull, full)
	}
	return nil
}

// Subscribe registers ch to receive every published event.
func (b *SimpleBroker) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; exists {
		return fmt.Errorf("subscriber %s already exists", id)
	}
	b.subscribers[id] = ch
	return nil
}

// Unsubscribe removes a subscription. The channel is not closed.
func (b *SimpleBroker) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return fmt.Errorf("subscriber %s does not exist", id)
	}
	delete(b.subscribers, id)
	delete(b.dropped, id)
	return nil
}

// Dropped returns how many events id has missed because its channel was full.
func (b *SimpleBroker) Dropped(id string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped[id]
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Event)
	b.dropped = make(map[string]int)
}
