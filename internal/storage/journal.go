// Package storage persists tracked reconnection attempts for offline
// diagnostics. Two backends exist: embedded SQLite for single-box installs
// and PostgreSQL for hosted deployments.
package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"soundlink/internal/reconnect"
)

// Entry is one persisted attempt record.
type Entry struct {
	ID         int64
	ClientID   string
	Attempt    int
	Success    bool
	DurationMs float64
	CreatedAt  time.Time
}

// Journal is an append-only log of reconnection attempts.
type Journal interface {
	// Append stores one entry.
	Append(ctx context.Context, e Entry) error
	// RecentByClient returns up to limit newest entries for a client,
	// newest first.
	RecentByClient(ctx context.Context, clientID string, limit int) ([]Entry, error)
	// Prune deletes entries created before the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	// Close releases the backend.
	Close() error
}

// Sink adapts a Journal to the engine's tracking sink. Writes happen on a
// background goroutine so tracking never blocks on storage; when the buffer
// is full the event is dropped and counted, since the journal is diagnostic
// data, not the source of truth.
type Sink struct {
	journal Journal
	log     *slog.Logger
	ch      chan Entry
	wg      sync.WaitGroup
	once    sync.Once

	mu      sync.Mutex
	dropped int64
}

// NewSink starts the background writer. bufferSize <= 0 defaults to 256.
func NewSink(j Journal, log *slog.Logger, bufferSize int) *Sink {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Sink{journal: j, log: log, ch: make(chan Entry, bufferSize)}
	s.wg.Add(1)
	go s.writeLoop()
	return s
}

// TrackAttempt implements reconnect.Sink.
func (s *Sink) TrackAttempt(e reconnect.Event) {
	entry := Entry{
		ClientID:   e.ClientID,
		Attempt:    e.Record.Attempt,
		Success:    e.Record.Success,
		DurationMs: e.Record.DurationMs,
		CreatedAt:  e.Record.Timestamp,
	}
	select {
	case s.ch <- entry:
	default:
		s.mu.Lock()
		s.dropped++
		n := s.dropped
		s.mu.Unlock()
		if n%100 == 1 {
			s.log.Warn("journal buffer full, dropping events", slog.Int64("dropped", n))
		}
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (s *Sink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close drains buffered events and stops the writer. The journal itself is
// not closed.
func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.ch)
		s.wg.Wait()
	})
}

func (s *Sink) writeLoop() {
	defer s.wg.Done()
	for entry := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.journal.Append(ctx, entry); err != nil {
			s.log.Error("journal append failed",
				slog.String("client", entry.ClientID), slog.Any("err", err))
		}
		cancel()
	}
}
