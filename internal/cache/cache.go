// Package cache is a tagged read-through cache. Entries are keyed by a tag
// and the canonical JSON of the query arguments, expire lazily after a TTL,
// and are dropped wholesale when their tag is invalidated. Concurrent reads
// of the same key share a single computation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used when neither the layer nor the read specify one.
const DefaultTTL = 60 * time.Second

// Tier is an optional shared second tier consulted after a local miss.
// Values are the JSON encoding of the computed result.
type Tier interface {
	Get(ctx context.Context, tag, signature string) ([]byte, bool, error)
	Set(ctx context.Context, tag, signature string, value []byte, ttl time.Duration) error
	InvalidateTag(ctx context.Context, tag string) error
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Layer holds the cached entries of every tag.
type Layer struct {
	mu       sync.Mutex
	entries  map[string]map[string]entry // tag -> signature -> entry
	gens     map[string]uint64           // tag -> invalidation generation
	inflight map[string]map[string]uint64
	flightID uint64
	stale    map[string]bool // tags whose tier invalidation failed

	group  singleflight.Group
	ttl    time.Duration
	now    func() time.Time
	tier   Tier
	logger *slog.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	tierHits      atomic.Int64
	computes      atomic.Int64
	errors        atomic.Int64
	invalidations atomic.Int64
}

// Option configures a Layer.
type Option func(*Layer)

// WithTTL sets the default time-to-live of entries.
func WithTTL(d time.Duration) Option {
	return func(l *Layer) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithTier adds a shared second tier.
func WithTier(t Tier) Option {
	return func(l *Layer) { l.tier = t }
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(l *Layer) { l.now = now }
}

// WithLogger sets the logger used for tier failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Layer) { l.logger = logger }
}

// New returns an empty layer.
func New(opts ...Option) *Layer {
	l := &Layer{
		entries:  make(map[string]map[string]entry),
		gens:     make(map[string]uint64),
		inflight: make(map[string]map[string]uint64),
		stale:    make(map[string]bool),
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// TTL returns the layer's default time-to-live.
func (l *Layer) TTL() time.Duration {
	return l.ttl
}

// Signature returns the canonical form of a read's arguments.
func Signature(args any) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("cache signature: %w", err)
	}
	return string(b), nil
}

// Read returns the cached value for (tag, args) or computes it. A ttl of
// zero uses the layer default. Errors from compute are returned to every
// waiting caller and never cached.
func Read[T any](ctx context.Context, l *Layer, tag string, args any, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	sig, err := Signature(args)
	if err != nil {
		return zero, err
	}
	if ttl <= 0 {
		ttl = l.ttl
	}

	if v, ok := l.lookup(tag, sig); ok {
		l.hits.Add(1)
		t, _ := v.(T)
		return t, nil
	}
	l.misses.Add(1)

	key := tag + "\x00" + sig
	ch := l.group.DoChan(key, func() (any, error) {
		gen, id := l.beginFlight(tag, key)
		defer l.endFlight(tag, key, id)

		// The computation outlives any single caller; waiters share it.
		cctx := context.WithoutCancel(ctx)

		useTier := l.tierUsable(cctx, tag)
		if useTier {
			if v, ok := readTier[T](cctx, l, tag, sig); ok {
				l.tierHits.Add(1)
				l.storeLocal(tag, sig, v, gen, ttl)
				return v, nil
			}
		}

		l.computes.Add(1)
		v, err := compute(cctx)
		if err != nil {
			l.errors.Add(1)
			return nil, err
		}
		if l.storeLocal(tag, sig, v, gen, ttl) && useTier {
			l.writeTier(cctx, tag, sig, v, ttl)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, _ := res.Val.(T)
		return t, nil
	}
}

// tierUsable reports whether the tier may serve tag. A tag whose tier
// invalidation failed is kept off the tier until a retried invalidation
// succeeds, so values from before the invalidation are never read back.
func (l *Layer) tierUsable(ctx context.Context, tag string) bool {
	if l.tier == nil {
		return false
	}
	l.mu.Lock()
	stale := l.stale[tag]
	l.mu.Unlock()
	if !stale {
		return true
	}
	if err := l.tier.InvalidateTag(ctx, tag); err != nil {
		l.logger.Warn("cache tier still unavailable for tag", "tag", tag, "error", err)
		return false
	}
	l.mu.Lock()
	delete(l.stale, tag)
	l.mu.Unlock()
	return true
}

func readTier[T any](ctx context.Context, l *Layer, tag, sig string) (T, bool) {
	var v T
	if l.tier == nil {
		return v, false
	}
	b, ok, err := l.tier.Get(ctx, tag, sig)
	if err != nil {
		l.logger.Warn("cache tier get failed", "tag", tag, "error", err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		l.logger.Warn("cache tier decode failed", "tag", tag, "error", err)
		return v, false
	}
	return v, true
}

func (l *Layer) writeTier(ctx context.Context, tag, sig string, v any, ttl time.Duration) {
	if l.tier == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		l.logger.Warn("cache tier encode failed", "tag", tag, "error", err)
		return
	}
	if err := l.tier.Set(ctx, tag, sig, b, ttl); err != nil {
		l.logger.Warn("cache tier set failed", "tag", tag, "error", err)
	}
}

// lookup returns a live entry, deleting it if it has expired.
func (l *Layer) lookup(tag, sig string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[tag][sig]
	if !ok {
		return nil, false
	}
	if !l.now().Before(e.expiresAt) {
		delete(l.entries[tag], sig)
		return nil, false
	}
	return e.value, true
}

// beginFlight records an in-flight computation for tag and returns the
// tag's current generation.
func (l *Layer) beginFlight(tag, key string) (gen, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flightID++
	id = l.flightID
	keys, ok := l.inflight[tag]
	if !ok {
		keys = make(map[string]uint64)
		l.inflight[tag] = keys
	}
	keys[key] = id
	return l.gens[tag], id
}

func (l *Layer) endFlight(tag, key string, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if keys := l.inflight[tag]; keys[key] == id {
		delete(keys, key)
		if len(keys) == 0 {
			delete(l.inflight, tag)
		}
	}
}

// storeLocal saves v unless the tag was invalidated since gen was read.
func (l *Layer) storeLocal(tag, sig string, v any, gen uint64, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gens[tag] != gen {
		return false
	}
	sigs, ok := l.entries[tag]
	if !ok {
		sigs = make(map[string]entry)
		l.entries[tag] = sigs
	}
	sigs[sig] = entry{value: v, expiresAt: l.now().Add(ttl)}
	return true
}

// InvalidateTag drops every entry of tag. Computations already running for
// the tag finish for their current waiters but do not store their result,
// and later reads start a fresh computation. If the tier cannot be
// invalidated the error is returned and the tag bypasses the tier until a
// later invalidation of it succeeds.
func (l *Layer) InvalidateTag(ctx context.Context, tag string) error {
	l.mu.Lock()
	delete(l.entries, tag)
	l.gens[tag]++
	for key := range l.inflight[tag] {
		l.group.Forget(key)
	}
	delete(l.inflight, tag)
	if l.tier != nil {
		l.stale[tag] = true
	}
	l.mu.Unlock()

	l.invalidations.Add(1)
	if l.tier == nil {
		return nil
	}
	if err := l.tier.InvalidateTag(ctx, tag); err != nil {
		return fmt.Errorf("invalidate tier tag %s: %w", tag, err)
	}
	l.mu.Lock()
	delete(l.stale, tag)
	l.mu.Unlock()
	return nil
}

// Stats is a snapshot of layer counters.
type Stats struct {
	Entries       int              `json:"entries"`
	Tags          map[string]int   `json:"tags"`
	Hits          int64            `json:"hits"`
	Misses        int64            `json:"misses"`
	TierHits      int64            `json:"tierHits"`
	Computes      int64            `json:"computes"`
	Errors        int64            `json:"errors"`
	Invalidations int64            `json:"invalidations"`
	Generations   map[string]int64 `json:"generations"`
}

// Stats returns current counters. Entries counts stored entries, including
// expired ones not yet evicted.
func (l *Layer) Stats() Stats {
	l.mu.Lock()
	s := Stats{Tags: make(map[string]int, len(l.entries)), Generations: make(map[string]int64, len(l.gens))}
	for tag, sigs := range l.entries {
		s.Tags[tag] = len(sigs)
		s.Entries += len(sigs)
	}
	for tag, g := range l.gens {
		s.Generations[tag] = int64(g)
	}
	l.mu.Unlock()

	s.Hits = l.hits.Load()
	s.Misses = l.misses.Load()
	s.TierHits = l.tierHits.Load()
	s.Computes = l.computes.Load()
	s.Errors = l.errors.Load()
	s.Invalidations = l.invalidations.Load()
	return s
}
