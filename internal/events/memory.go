package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// MemoryBus is an in-process Publisher and Subscriber. It is used when NATS
// is not configured so the write path still drives invalidation. Topics
// match exactly, or by prefix when the pattern ends in ".>".
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[int]*memorySub
	nextID  int
	closed  bool
	dropped atomic.Int64
}

type memorySub struct {
	pattern string
	ch      chan []byte
}

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]*memorySub)}
}

// Publish delivers the JSON-encoded event to every matching subscriber.
// Slow subscribers drop messages rather than block the publisher; each drop
// is logged and counted.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("publishing to %s: bus closed", topic)
	}
	for _, s := range b.subs {
		if !topicMatches(s.pattern, topic) {
			continue
		}
		select {
		case s.ch <- data:
		default:
			b.dropped.Add(1)
			slog.Warn("memory bus subscriber full, event dropped",
				"topic", topic, "pattern", s.pattern, "buffer", cap(s.ch))
		}
	}
	return nil
}

// Dropped returns the number of events dropped for full subscribers.
func (b *MemoryBus) Dropped() int64 {
	return b.dropped.Load()
}

// Subscribe registers a subscriber for pattern.
func (b *MemoryBus) Subscribe(pattern string) (<-chan []byte, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, fmt.Errorf("subscribing to %s: bus closed", pattern)
	}
	id := b.nextID
	b.nextID++
	s := &memorySub{pattern: pattern, ch: make(chan []byte, subscriptionBuffer)}
	b.subs[id] = s

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
	return s.ch, cancel, nil
}

// Close closes every subscription channel.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
	return nil
}

func topicMatches(pattern, topic string) bool {
	if prefix, ok := strings.CutSuffix(pattern, ">"); ok {
		return strings.HasPrefix(topic, prefix) && len(topic) > len(prefix)
	}
	return pattern == topic
}
