// Package events carries change notifications between the write path and
// cache invalidation, over NATS or an in-process bus.
package events

import (
	"context"
)

// Event topic constants
const (
	TopicCollectionChanged = "catalog.collection.changed"
	TopicGlobalChanged     = "catalog.global.changed"

	// TopicAll matches every catalog topic.
	TopicAll = "catalog.>"
)

// Operation names carried in change events.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change describes a successful write. For globals, Collection holds the
// global slug and ID is empty.
type Change struct {
	Collection string `json:"collection"`
	Operation  string `json:"operation"`
	ID         string `json:"id,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives raw event payloads. Topics may use NATS wildcards.
// The cancel function unsubscribes and closes the channel.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
