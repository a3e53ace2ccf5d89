// Package relay fans live capture events out to WebSocket clients so an
// operator can watch an analysis as it runs.
package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/webscope/internal/capture"
)

const subscriberBufSize = 256

// Event is one capture notification: kind is "request" or "response".
type Event struct {
	Kind     string                  `json:"kind"`
	Exchange capture.ExchangeSummary `json:"exchange"`
}

// Broker fans out events to all subscribed clients. Slow consumers have
// events dropped rather than stalling capture.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
}

// NewBroker creates an event broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int64]chan Event)}
}

// Subscribe registers a client and returns its id plus a buffered channel.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers without blocking.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// ExchangeObserved implements capture.EventSink: monitor callbacks publish
// straight into the broker.
func (b *Broker) ExchangeObserved(kind string, summary capture.ExchangeSummary) {
	b.Publish(Event{Kind: kind, Exchange: summary})
}

func marshalEvent(evt Event) []byte {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Debug("event marshal failed", "error", err)
		return nil
	}
	return data
}
