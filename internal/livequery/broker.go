package livequery

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/mahjong-club/internal/metrics"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultBuffer = 64

// New creates a broker. Each subscription gets a buffer of the given size;
// a non-positive size uses the default.
func New(m metrics.Metrics, buffer int) Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &broker{
		origin:  uuid.NewString(),
		buffer:  buffer,
		subs:    make(map[string]map[uint64]*Subscription),
		metrics: m,
	}
}

func (b *broker) Origin() string {
	return b.origin
}

func (b *broker) Forward(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarders = append(b.forwarders, f)
}

func (b *broker) Subscribe(topic string, filter Filter) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan Change, b.buffer)
	sub := &Subscription{
		C:      ch,
		id:     b.nextID,
		topic:  topic,
		filter: filter,
		ch:     ch,
		broker: b,
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*Subscription)
	}
	b.subs[topic][sub.id] = sub
	log.Debug("Subscribed to live query", "topic", topic, "subscriptionID", sub.id)
	return sub
}

func (b *broker) Publish(change Change) {
	if change.Origin == "" {
		change.Origin = b.origin
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	b.dispatch(change)

	b.mu.RLock()
	forwarders := append([]Forwarder(nil), b.forwarders...)
	b.mu.RUnlock()
	for _, f := range forwarders {
		f(change)
	}
}

func (b *broker) Deliver(change Change) {
	if change.Origin == b.origin {
		log.Debug("Ignoring own change", "topic", change.Topic, "key", change.Key)
		return
	}
	b.dispatch(change)
}

func (b *broker) dispatch(change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.metrics.IncChangesPublished()
	for _, sub := range b.subs[change.Topic] {
		if sub.filter != nil && !sub.filter(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			// Subscriber is behind; its snapshot refresh will catch up.
			sub.dropped.Store(true)
			b.metrics.IncChangesDropped()
			log.Warn("Dropped change for slow subscriber", "topic", change.Topic, "key", change.Key, "subscriptionID", sub.id)
		}
	}
}

func (b *broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[sub.topic], sub.id)
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
	close(sub.ch)
}

// Close stops delivery and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.broker.unsubscribe(s) })
}

// Dropped reports whether any change was dropped since the last call, and resets the flag.
func (s *Subscription) Dropped() bool {
	return s.dropped.Swap(false)
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// NewChange builds a change carrying v encoded as msgpack.
func NewChange(topic string, kind Kind, key, scope string, v any) (Change, error) {
	change := Change{Topic: topic, Kind: kind, Key: key, Scope: scope, At: time.Now().UTC()}
	if v == nil {
		return change, nil
	}
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return Change{}, fmt.Errorf("failed to encode %s change: %w", topic, err)
	}
	change.Payload = payload
	return change, nil
}

// Decode unmarshals the change payload into v.
func (c Change) Decode(v any) error {
	if len(c.Payload) == 0 {
		return fmt.Errorf("change %s/%s has no payload", c.Topic, c.Key)
	}
	if err := msgpack.Unmarshal(c.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s change: %w", c.Topic, err)
	}
	return nil
}
