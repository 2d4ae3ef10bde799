// Package notify raises operator alerts when a client's reconnection
// behavior degrades past the engine's high-priority threshold.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"soundlink/internal/reconnect"
	"soundlink/pkg/retry"
)

// Sender delivers one alert message to the operator channel.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Alerter is a tracking sink that watches failed attempts and notifies the
// operator when the engine starts recommending a connection-method change
// for a client. Alerts are rate-limited per client.
type Alerter struct {
	store    *reconnect.Store
	sender   Sender
	log      *slog.Logger
	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

// AlerterConfig configures an Alerter. Zero Cooldown defaults to one hour.
// Store may be left nil and attached later with Bind, which breaks the cycle
// between the store and the sinks it fans out to.
type AlerterConfig struct {
	Store    *reconnect.Store
	Sender   Sender
	Log      *slog.Logger
	Cooldown time.Duration
	Now      func() time.Time // for testing
}

// NewAlerter creates an Alerter.
func NewAlerter(cfg AlerterConfig) *Alerter {
	a := &Alerter{
		store:     cfg.Store,
		sender:    cfg.Sender,
		log:       cfg.Log,
		cooldown:  cfg.Cooldown,
		now:       cfg.Now,
		lastAlert: make(map[string]time.Time),
	}
	if a.cooldown <= 0 {
		a.cooldown = time.Hour
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Bind attaches the store the alerter reads recommendations from. Must be
// called before the first tracked attempt when the config carried no store.
func (a *Alerter) Bind(store *reconnect.Store) {
	a.store = store
}

// TrackAttempt implements reconnect.Sink. Successful attempts clear the
// cooldown so a later relapse alerts again promptly.
func (a *Alerter) TrackAttempt(e reconnect.Event) {
	if a.store == nil {
		return
	}
	if e.Record.Success {
		a.mu.Lock()
		delete(a.lastAlert, e.ClientID)
		a.mu.Unlock()
		return
	}

	rec, ok := highPriority(a.store.Recommendations(e.ClientID))
	if !ok {
		return
	}

	a.mu.Lock()
	if last, seen := a.lastAlert[e.ClientID]; seen && a.now().Sub(last) < a.cooldown {
		a.mu.Unlock()
		return
	}
	a.lastAlert[e.ClientID] = a.now()
	a.mu.Unlock()

	text := fmt.Sprintf("soundlink: client %s is flapping (%d/%d failed), engine recommends: %s",
		e.ClientID, e.State.Failures, e.State.Attempts, rec.Action)

	// Delivery happens off the tracking path; the engine must not wait on
	// the network.
	go a.deliver(e.ClientID, text)
}

func (a *Alerter) deliver(clientID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := retry.WithAttempts(ctx, 3, func(ctx context.Context) error {
		return a.sender.Send(ctx, text)
	})
	if err != nil {
		a.log.Error("alert delivery failed", slog.String("client", clientID), slog.Any("err", err))
		return
	}
	a.log.Info("alert delivered", slog.String("client", clientID))
}

func highPriority(recs []reconnect.Recommendation) (reconnect.Recommendation, bool) {
	for _, r := range recs {
		if r.Priority == reconnect.PriorityHigh {
			return r, true
		}
	}
	return reconnect.Recommendation{}, false
}
