// Package revalidate maps content changes to cache tags and invalidates
// them. The webhook, the event bus and the gRPC control plane all feed the
// same Invalidator.
package revalidate

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/alfredjeanlab/catalog/internal/content"
	"github.com/alfredjeanlab/catalog/internal/events"
)

// tagTable maps a collection or global slug to the tags its changes
// invalidate.
var tagTable = map[string][]string{
	"pages":         {content.TagPage},
	"products":      {content.TagProducts},
	"components":    {content.TagComponents},
	"site-settings": {content.TagSiteSettings},
	"navigation":    {content.TagNavigation},
}

// TagsFor returns the tags to invalidate for a change to collection.
// Unknown collections invalidate every tag.
func TagsFor(collection string) []string {
	if tags, ok := tagTable[collection]; ok {
		return append([]string(nil), tags...)
	}
	return append([]string(nil), content.AllTags...)
}

// Notification is one change report.
type Notification struct {
	Collection string `json:"collection"`
	Operation  string `json:"operation"`
	Source     string `json:"-"`
}

// TagInvalidator drops cached entries by tag.
type TagInvalidator interface {
	InvalidateTag(ctx context.Context, tag string) error
}

// State reports whether the invalidator is handling a notification.
type State int32

const (
	StateIdle State = iota
	StateProcessing
)

func (s State) String() string {
	if s == StateProcessing {
		return "processing"
	}
	return "idle"
}

// Invalidator applies notifications to the cache.
type Invalidator struct {
	cache   TagInvalidator
	logger  *slog.Logger
	active  atomic.Int32
	handled atomic.Int64
}

// New returns an invalidator over cache.
func New(cache TagInvalidator, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{cache: cache, logger: logger}
}

// State returns StateProcessing while any notification is being handled.
func (i *Invalidator) State() State {
	if i.active.Load() > 0 {
		return StateProcessing
	}
	return StateIdle
}

// Handled returns the number of notifications processed.
func (i *Invalidator) Handled() int64 {
	return i.handled.Load()
}

// Handle invalidates the tags for n and returns them. A failure on one tag
// does not stop the others; the failures are joined into the returned
// error. There are no retries.
func (i *Invalidator) Handle(ctx context.Context, n Notification) ([]string, error) {
	i.active.Add(1)
	defer i.active.Add(-1)

	tags := TagsFor(n.Collection)
	var errs []error
	for _, tag := range tags {
		if err := i.cache.InvalidateTag(ctx, tag); err != nil {
			i.logger.Error("invalidate tag", "tag", tag, "collection", n.Collection, "error", err)
			errs = append(errs, err)
		}
	}
	i.handled.Add(1)
	if len(errs) > 0 {
		return tags, fmt.Errorf("revalidate %s: %w", n.Collection, errors.Join(errs...))
	}
	i.logger.Info("revalidated",
		"collection", n.Collection, "operation", n.Operation, "source", n.Source, "tags", tags)
	return tags, nil
}

// Consume subscribes to topic and handles every change event until ctx is
// done or the subscription closes.
func (i *Invalidator) Consume(ctx context.Context, sub events.Subscriber, topic string) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			var c events.Change
			if err := json.Unmarshal(data, &c); err != nil {
				i.logger.Warn("skipping malformed change event", "error", err)
				continue
			}
			// Failures are logged by Handle.
			_, _ = i.Handle(ctx, Notification{Collection: c.Collection, Operation: c.Operation, Source: "bus"})
		}
	}
}

// VerifySecret reports whether provided matches the configured secret in
// constant time. An empty configured secret rejects every request.
func VerifySecret(configured, provided string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(provided)) == 1
}
