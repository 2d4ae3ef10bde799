package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundlink/internal/reconnect"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
	ch   chan string
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan string, 8)}
}

func (c *captureSender) Send(_ context.Context, text string) error {
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	c.ch <- text
	return nil
}

func (c *captureSender) wait(t *testing.T) string {
	t.Helper()
	select {
	case text := <-c.ch:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("no alert delivered")
		return ""
	}
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func failTimes(store *reconnect.Store, clientID string, n int) {
	for i := 1; i <= n; i++ {
		store.Track(clientID, i, false, 500)
	}
}

func lastEvent(store *reconnect.Store, clientID string, success bool) reconnect.Event {
	state, _ := store.State(clientID)
	return reconnect.Event{
		ClientID: clientID,
		Record:   reconnect.AttemptRecord{Attempt: state.Attempts, Success: success},
		State:    state,
	}
}

func TestAlerterSendsOnHighPriority(t *testing.T) {
	store := reconnect.NewStore(reconnect.StoreConfig{})
	sender := newCaptureSender()
	a := NewAlerter(AlerterConfig{Store: store, Sender: sender})

	failTimes(store, "desk-1", 10)
	a.TrackAttempt(lastEvent(store, "desk-1", false))

	text := sender.wait(t)
	assert.Contains(t, text, "desk-1")
	assert.Contains(t, text, "change_connection_method")
}

func TestAlerterIgnoresHealthyClients(t *testing.T) {
	store := reconnect.NewStore(reconnect.StoreConfig{})
	sender := newCaptureSender()
	a := NewAlerter(AlerterConfig{Store: store, Sender: sender})

	store.Track("desk-2", 1, true, 200)
	store.Track("desk-2", 2, false, 400)
	a.TrackAttempt(lastEvent(store, "desk-2", false))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sender.count())
}

func TestAlerterCooldown(t *testing.T) {
	store := reconnect.NewStore(reconnect.StoreConfig{})
	sender := newCaptureSender()

	now := time.Now()
	clock := func() time.Time { return now }
	a := NewAlerter(AlerterConfig{
		Store:    store,
		Sender:   sender,
		Cooldown: time.Hour,
		Now:      clock,
	})

	failTimes(store, "desk-3", 10)
	a.TrackAttempt(lastEvent(store, "desk-3", false))
	sender.wait(t)

	// Within the cooldown window nothing more goes out.
	a.TrackAttempt(lastEvent(store, "desk-3", false))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, sender.count())

	now = now.Add(2 * time.Hour)
	a.TrackAttempt(lastEvent(store, "desk-3", false))
	sender.wait(t)
	assert.Equal(t, 2, sender.count())
}

func TestAlerterSuccessClearsCooldown(t *testing.T) {
	store := reconnect.NewStore(reconnect.StoreConfig{})
	sender := newCaptureSender()
	a := NewAlerter(AlerterConfig{Store: store, Sender: sender, Cooldown: time.Hour})

	failTimes(store, "desk-4", 10)
	a.TrackAttempt(lastEvent(store, "desk-4", false))
	sender.wait(t)

	// One success resets the limiter, the next flap alerts immediately.
	store.Track("desk-4", 11, true, 200)
	a.TrackAttempt(lastEvent(store, "desk-4", true))

	failTimes(store, "desk-4", 10)
	a.TrackAttempt(lastEvent(store, "desk-4", false))
	sender.wait(t)
	assert.Equal(t, 2, sender.count())
}
