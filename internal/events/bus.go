// Package events provides a typed publish/subscribe bus used to fan widget
// state changes out to views.
//
// A Topic binds an event name to its payload type, so publishers and
// subscribers of the same topic cannot disagree on the payload:
//
//	var Typing = events.NewTopic[bool]("agent_typing")
//
//	unsubscribe := events.Subscribe(bus, Typing, func(on bool) { ... })
//	defer unsubscribe()
//
//	events.Publish(bus, Typing, true)
package events

import (
	"sync"
)

// Topic names an event stream carrying payloads of type T.
type Topic[T any] struct {
	name string
}

// NewTopic creates a topic. Topics are compared by name.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the topic name.
func (t Topic[T]) Name() string {
	return t.name
}

type subscriber struct {
	id uint64
	fn func(any)
}

// Bus dispatches published events to subscribers.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]subscriber),
	}
}

// Subscribe registers fn for topic and returns a function that removes the
// subscription. Calling the returned function more than once is harmless.
func Subscribe[T any](b *Bus, topic Topic[T], fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic.name] = append(b.subs[topic.name], subscriber{
		id: id,
		fn: func(v any) { fn(v.(T)) },
	})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic.name, id) })
	}
}

// Publish delivers payload to every subscriber of topic, synchronously and
// in subscription order.
func Publish[T any](b *Bus, topic Topic[T], payload T) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[topic.name]))
	copy(subs, b.subs[topic.name])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
}

// SubscriberCount returns the number of subscribers of a topic name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}
