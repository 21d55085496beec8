package broadcast

import (
	"context"
	"sync"
)

// Emitter delivers events to subscriber channels. Sends are
// non-blocking: a subscriber whose buffer is full misses that event
// rather than slowing the publisher down.
type Emitter struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
}

func NewEmitter() *Emitter {
	return &Emitter{
		clients: make(map[chan Event]struct{}),
	}
}

// Subscribe registers an observer channel that receives events until
// the context is done, at which point the channel is closed.
func (e *Emitter) Subscribe(ctx context.Context) <-chan Event {
	clientChan := make(chan Event, 10)

	e.mu.Lock()
	e.clients[clientChan] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(clientChan)
	}()

	return clientChan
}

func (e *Emitter) Publish(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for clientChan := range e.clients {
		select {
		case clientChan <- event:
		default:
			// Buffer full, skip this observer for this event.
		}
	}
}

func (e *Emitter) remove(clientChan chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.clients[clientChan]; ok {
		delete(e.clients, clientChan)
		close(clientChan)
	}
}

// ClientCount returns the number of connected observers.
func (e *Emitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}
