package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
)

func TestEmitterDeliversToAllSubscribers(t *testing.T) {
	emitter := broadcast.NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := emitter.Subscribe(ctx)
	second := emitter.Subscribe(ctx)
	assert.Equal(t, 2, emitter.ClientCount())

	emitter.Publish(broadcast.Event{Type: broadcast.EventStatsUpdate, Data: "payload"})

	for _, ch := range []<-chan broadcast.Event{first, second} {
		select {
		case event := <-ch:
			assert.Equal(t, broadcast.EventStatsUpdate, event.Type)
			assert.Equal(t, "payload", event.Data)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestEmitterUnsubscribeOnContextDone(t *testing.T) {
	emitter := broadcast.NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := emitter.Subscribe(ctx)
	cancel()

	// The channel is closed once the removal goroutine observes the
	// cancellation.
	assert.Eventually(t, func() bool {
		return emitter.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed")
	}
}

func TestEmitterDropsWhenSubscriberBufferFull(t *testing.T) {
	emitter := broadcast.NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := emitter.Subscribe(ctx)

	// Nobody is draining: overflow past the buffer must not block the
	// publisher.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			emitter.Publish(broadcast.Event{Type: broadcast.EventNewScan, Data: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// The buffered prefix is still delivered in order.
	first := <-ch
	assert.Equal(t, 0, first.Data)
}

func TestMultiFansOut(t *testing.T) {
	emitter := broadcast.NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := emitter.Subscribe(ctx)

	multi := broadcast.Multi{broadcast.Discard{}, emitter}
	multi.Publish(broadcast.Event{Type: broadcast.EventScannerStatus, Data: "online"})

	select {
	case event := <-ch:
		assert.Equal(t, broadcast.EventScannerStatus, event.Type)
	case <-time.After(time.Second):
		t.Fatal("multi publisher did not reach subscriber")
	}
}
