package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// subscriptionBuffer is the per-subscription channel capacity. Payloads
// arriving while it is full are dropped.
const subscriptionBuffer = 64

// connect dials NATS as a named catalog client that reconnects forever and
// logs connection state changes. opts are applied after the defaults.
func connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	defaults := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "client", name, "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "client", name, "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON-encoded change events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, "catalog-publisher", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered publishes, waiting up to a second, and closes the
// connection.
func (p *NATSPublisher) Close() error {
	defer p.conn.Close()
	if p.conn.IsConnected() {
		if err := p.conn.FlushTimeout(time.Second); err != nil {
			return fmt.Errorf("flushing publisher: %w", err)
		}
	}
	return nil
}

// NATSSubscriber delivers payloads from NATS subjects on channels.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to the NATS server at url.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, "catalog-subscriber", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// natsSubscription forwards messages to ch until stopped. mu orders
// deliveries still running on the NATS goroutine against closing ch.
type natsSubscription struct {
	mu      sync.Mutex
	ch      chan []byte
	stopped bool
	once    sync.Once
	sub     *nats.Subscription
}

func (s *natsSubscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	select {
	case s.ch <- msg.Data:
	default:
	}
}

func (s *natsSubscription) stop() {
	s.once.Do(func() {
		if s.sub != nil {
			_ = s.sub.Unsubscribe()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stopped = true
		// Pending payloads are discarded; readers see a closed channel.
		for drained := false; !drained; {
			select {
			case <-s.ch:
			default:
				drained = true
			}
		}
		close(s.ch)
	})
}

// Subscribe returns a channel of payloads for topic, which may use NATS
// wildcards such as TopicAll. The subscription is registered with the
// server before Subscribe returns.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	ns := &natsSubscription{ch: make(chan []byte, subscriptionBuffer)}

	sub, err := s.conn.Subscribe(topic, ns.deliver)
	if err != nil {
		ns.stop()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	ns.sub = sub
	if err := s.conn.Flush(); err != nil {
		ns.stop()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return ns.ch, ns.stop, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
