// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// clientBuffer is the per-subscriber send buffer. A subscriber that falls
// further behind than this starts losing events.
const clientBuffer = 64

// clientSet is the subscriber registry, owned by the broker loop.
type clientSet map[chan []byte]struct{}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: one loop goroutine owns the subscriber set and the
// hierarchy throttle timestamp, and executes every mutation as an op sent
// over a single channel. Public methods only enqueue ops, so no mutexes
// are required and ops run in call order.
type Broker struct {
	hierarchyMin  time.Duration
	lastHierarchy time.Time // loop-owned

	ops     chan func(clientSet)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given hierarchy throttle
// interval.
func NewBroker(hierarchyThrottle time.Duration) *Broker {
	if hierarchyThrottle <= 0 {
		hierarchyThrottle = 2 * time.Second
	}

	b := &Broker{
		hierarchyMin: hierarchyThrottle,
		ops:          make(chan func(clientSet)),
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(clientSet)
	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case op := <-b.ops:
			op(clients)
		}
	}
}

// do hands one op to the loop goroutine. It reports false when the broker
// is closed, in which case the op never runs.
func (b *Broker) do(op func(clientSet)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// deliver formats the event and offers it to every subscriber. A full
// subscriber buffer drops the event rather than blocking the loop.
func deliver(clients clientSet, event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
	for ch := range clients {
		select {
		case ch <- raw:
		default:
		}
	}
}

// Close gracefully stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. The channel is
// returned closed when the broker has already shut down.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	ok := b.do(func(clients clientSet) {
		clients[ch] = struct{}{}
	})
	if !ok {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(clients clientSet) {
		if _, ok := clients[ch]; ok {
			delete(clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(clients clientSet) { resp <- len(clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.do(func(clients clientSet) {
		deliver(clients, event)
	})
}

// PublishChange publishes a vault change (document.created, container.moved,
// ...) followed by a throttled hierarchy.updated event.
func (b *Broker) PublishChange(event string, data map[string]string) {
	b.do(func(clients clientSet) {
		deliver(clients, Event{Type: event, Data: data})

		now := time.Now()
		if now.Sub(b.lastHierarchy) < b.hierarchyMin {
			return
		}
		b.lastHierarchy = now
		deliver(clients, Event{Type: "hierarchy.updated", Data: map[string]string{}})
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
