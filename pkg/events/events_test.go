package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEmit_AssignsStrictlyIncreasingSequenceNumbers is the event
// total-order property: sequence numbers are strictly increasing and
// gapless across every Emit call on one Emitter.
func TestEmit_AssignsStrictlyIncreasingSequenceNumbers(t *testing.T) {
	e := NewEmitter("inv-1", 16)
	first := e.Emit(TypeInit, nil)
	second := e.Emit(TypeThinking, nil)
	third := e.Emit(TypeDone, nil)

	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, 3, third.Seq)
}

// TestObserve_SeesEventsBeforeSubscriberChannel asserts an observer is
// invoked synchronously, in emission order, for every event.
func TestObserve_SeesEventsBeforeSubscriberChannel(t *testing.T) {
	e := NewEmitter("inv-1", 16)
	var mu sync.Mutex
	var seen []Type
	e.Observe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Type)
	})

	e.Emit(TypeInit, nil)
	e.Emit(TypeToolStart, nil)
	e.Emit(TypeDone, nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Type{TypeInit, TypeToolStart, TypeDone}, seen)
}

// TestSubscribe_DeliversEventsInOrder asserts the subscriber channel
// receives every event in the same order they were emitted.
func TestSubscribe_DeliversEventsInOrder(t *testing.T) {
	e := NewEmitter("inv-1", 16)
	ch := e.Subscribe()

	e.Emit(TypeInit, nil)
	e.Emit(TypeToolStart, nil)
	e.Emit(TypeDone, nil)
	e.Close()

	var got []Type
	for ev := range ch {
		got = append(got, ev.Type)
	}
	require.Equal(t, []Type{TypeInit, TypeToolStart, TypeDone}, got)
}

// TestEmit_OverflowDropsRatherThanBlocks asserts a full subscriber
// channel never blocks the producer: Emit always returns, and an
// overflow surfaces as a synthetic TypeError event rather than stalling.
func TestEmit_OverflowDropsRatherThanBlocks(t *testing.T) {
	e := NewEmitter("inv-1", 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			e.Emit(TypeThinking, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked the producer instead of dropping on a full channel")
	}
}
