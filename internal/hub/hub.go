package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultSubscriberBuffer = 64

// Subscriber is one registered delivery path. Payloads arrive on C() in
// publish order; Done() is closed when the hub has removed the subscriber,
// either explicitly or after a failed delivery.
type Subscriber struct {
	id   uuid.UUID
	ch   chan []byte
	done chan struct{}
}

func (s *Subscriber) ID() uuid.UUID {
	return s.id
}

// C returns the delivery channel.
func (s *Subscriber) C() <-chan []byte {
	return s.ch
}

// Done is closed once the subscriber has been removed from the hub.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Hub fans normalized events out to a dynamic set of subscribers. Publish
// never blocks on a single subscriber: each delivery is a bounded
// non-blocking attempt, and a subscriber whose buffer is full is evicted.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscriber
	buffer int
	logger *logrus.Entry
}

func New(buffer int, logger *logrus.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[uuid.UUID]*Subscriber),
		buffer: buffer,
		logger: logger.WithField("component", "hub"),
	}
}

// Subscribe registers a new delivery path.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:   uuid.New(),
		ch:   make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber; safe to call more than once and
// concurrently with Publish.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.remove(sub.id, "")
}

// Publish delivers msg to every registered subscriber. Per-subscriber order
// matches publish call order; no ordering holds across subscribers.
func (h *Hub) Publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Warn("drop unmarshalable broadcast payload")
		return
	}

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- payload:
		default:
			h.remove(sub.id, "delivery buffer full")
		}
	}
}

// Len reports the current number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// remove deletes the subscriber and closes its done channel exactly once:
// only the caller that actually removed it from the map closes.
func (h *Hub) remove(id uuid.UUID, reason string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	close(sub.done)
	if reason != "" {
		h.logger.WithField("subscriber", id.String()).Warnf("subscriber evicted: %s", reason)
	}
}
