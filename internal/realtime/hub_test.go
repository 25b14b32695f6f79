package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu        sync.Mutex
	connected int
	dropped   int
}

func (o *countingObserver) RelayConnected(delta int) {
	o.mu.Lock()
	o.connected += delta
	o.mu.Unlock()
}

func (o *countingObserver) RelayDropped() {
	o.mu.Lock()
	o.dropped++
	o.mu.Unlock()
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for relay event")
	}
	return Event{}
}

func TestHubBroadcastScopesToSession(t *testing.T) {
	hub := NewHub(4, nil, nil)
	a := hub.Join("s1", "u1")
	b := hub.Join("s1", "u2")
	other := hub.Join("s2", "u3")

	delivered := hub.Broadcast(Event{Type: EventQuestion, SessionID: "s1"})
	assert.Equal(t, 2, delivered)
	assert.Equal(t, EventQuestion, recvEvent(t, a.Outbound).Type)
	assert.Equal(t, EventQuestion, recvEvent(t, b.Outbound).Type)
	select {
	case evt := <-other.Outbound:
		t.Fatalf("unexpected event for other session: %+v", evt)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	obs := &countingObserver{}
	hub := NewHub(1, obs, nil)
	c := hub.Join("s1", "u1")

	assert.Equal(t, 1, hub.Broadcast(Event{Type: EventPoll, SessionID: "s1"}))
	assert.Equal(t, 0, hub.Broadcast(Event{Type: EventPoll, SessionID: "s1"}))
	assert.Equal(t, 1, obs.dropped)
	assert.Equal(t, EventPoll, recvEvent(t, c.Outbound).Type)
}

func TestHubLeaveClosesAndReconnectReceives(t *testing.T) {
	obs := &countingObserver{}
	hub := NewHub(2, obs, nil)
	first := hub.Join("s1", "u1")
	hub.Leave(first)
	hub.Leave(first)

	_, ok := <-first.Outbound
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count("s1"))
	assert.False(t, hub.Send(first, Event{SessionID: "s1"}))

	second := hub.Join("s1", "u1")
	hub.Broadcast(Event{Type: EventAnswer, SessionID: "s1"})
	assert.Equal(t, EventAnswer, recvEvent(t, second.Outbound).Type)
	assert.Equal(t, 1, obs.connected)
}

func TestLocalBusForwardsToHub(t *testing.T) {
	hub := NewHub(2, nil, nil)
	c := hub.Join("s1", "u1")
	bus := NewLocalBus()
	require.NoError(t, bus.StartForwarder(context.Background(), func(evt Event) { hub.Broadcast(evt) }))

	evt, err := NewEvent(EventQuestion, "s1", "u2", "Ana", map[string]string{"question": "why?"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), evt))

	got := recvEvent(t, c.Outbound)
	assert.Equal(t, "u2", got.UserID)
	assert.JSONEq(t, `{"question":"why?"}`, string(got.Payload))

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Publish(context.Background(), evt))
	assert.Len(t, c.Outbound, 0)
}
