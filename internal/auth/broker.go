package auth

import (
	"sync"
)

// Broker is an in-process publish/subscribe hub for session events.
// Handlers run on the publisher's goroutine and must not block.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscriber
}

type subscriber struct {
	key     string // empty matches every key
	handler func(Event)
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]subscriber)}
}

// Subscribe registers handler for events of the given session key.
func (b *Broker) Subscribe(key string, handler func(Event)) Subscription {
	return b.add(subscriber{key: key, handler: handler})
}

// SubscribeAll registers handler for every event.
func (b *Broker) SubscribeAll(handler func(Event)) Subscription {
	return b.add(subscriber{handler: handler})
}

func (b *Broker) add(s subscriber) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = s
	return &brokerSubscription{broker: b, id: id}
}

// Publish delivers event to every matching subscriber.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, s := range b.subs {
		if s.key == "" || s.key == event.SessionKey {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Len reports the number of live subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

type brokerSubscription struct {
	broker *Broker
	id     uint64
	once   sync.Once
}

func (s *brokerSubscription) Unsubscribe() {
	s.once.Do(func() { s.broker.remove(s.id) })
}
