package reconnect

import (
	"hash/fnv"
	"sync"
	"time"
)

// Defaults for the store configuration.
const (
	DefaultRetention    = 24 * time.Hour
	DefaultPatternLimit = 20
	storeShards         = 32
)

// AttemptRecord is one tracked reconnection attempt outcome.
type AttemptRecord struct {
	Attempt    int       `json:"attempt"`
	Success    bool      `json:"success"`
	DurationMs float64   `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
}

// ClientState is the rolling per-client reconnection record. Values returned
// by the store are copies; mutation happens only through Track.
type ClientState struct {
	Attempts        int             `json:"attempts"`
	Successes       int             `json:"successes"`
	Failures        int             `json:"failures"`
	TotalDurationMs float64         `json:"totalDurationMs"`
	LastAttempt     *AttemptRecord  `json:"lastAttempt,omitempty"`
	Patterns        []AttemptRecord `json:"patterns"`
}

// Stats are process-wide counters across all clients. The average is a cheap
// smoothing filter, new = (old+sample)/2, not a true mean; downstream
// telemetry depends on that exact semantic.
type Stats struct {
	TotalAttempts           int64   `json:"totalAttempts"`
	SuccessfulReconnections int64   `json:"successfulReconnections"`
	FailedReconnections     int64   `json:"failedReconnections"`
	AverageReconnectTimeMs  float64 `json:"averageReconnectionTimeMs"`
}

// Event is emitted to the sink on every tracked attempt. State is a detached
// copy of the updated client state.
type Event struct {
	ClientID string        `json:"clientId"`
	Record   AttemptRecord `json:"record"`
	State    ClientState   `json:"state"`
}

// Sink receives tracking events. Implementations must not retain the event's
// slices beyond the call unless they copy them.
type Sink interface {
	TrackAttempt(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// TrackAttempt implements Sink.
func (f SinkFunc) TrackAttempt(e Event) { f(e) }

// MultiSink fans events out to several sinks in order. Nil sinks are
// skipped.
func MultiSink(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range out {
			s.TrackAttempt(e)
		}
	})
}

// StoreConfig configures a Store. Zero values fall back to defaults; a nil
// Sink disables event emission.
type StoreConfig struct {
	Sink         Sink
	Retention    time.Duration
	PatternLimit int
	Now          func() time.Time // for testing
}

type storeShard struct {
	mu      sync.Mutex
	clients map[string]*ClientState
}

// Store owns all per-client reconnection state. Access is striped by client
// identifier so simultaneously disconnecting clients do not serialize on a
// single lock.
type Store struct {
	shards       [storeShards]storeShard
	sink         Sink
	retention    time.Duration
	patternLimit int
	now          func() time.Time

	statsMu sync.Mutex
	stats   Stats
}

// NewStore creates a Store from cfg, applying defaults for zero fields.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		sink:         cfg.Sink,
		retention:    cfg.Retention,
		patternLimit: cfg.PatternLimit,
		now:          cfg.Now,
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.patternLimit <= 0 {
		s.patternLimit = DefaultPatternLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	for i := range s.shards {
		s.shards[i].clients = make(map[string]*ClientState)
	}
	return s
}

func (s *Store) shard(clientID string) *storeShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientID))
	return &s.shards[h.Sum32()%storeShards]
}

// Track records the outcome of one reconnection attempt. State for unknown
// clients is created lazily; there is no error path. The configured sink
// receives an event carrying a copy of the updated state.
func (s *Store) Track(clientID string, attempt int, success bool, durationMs float64) {
	rec := AttemptRecord{
		Attempt:    attempt,
		Success:    success,
		DurationMs: durationMs,
		Timestamp:  s.now(),
	}

	sh := s.shard(clientID)
	sh.mu.Lock()
	st, ok := sh.clients[clientID]
	if !ok {
		st = &ClientState{Patterns: make([]AttemptRecord, 0, s.patternLimit)}
		sh.clients[clientID] = st
	}
	st.Attempts++
	if success {
		st.Successes++
	} else {
		st.Failures++
	}
	st.TotalDurationMs += durationMs
	st.LastAttempt = &rec
	st.Patterns = append(st.Patterns, rec)
	if len(st.Patterns) > s.patternLimit {
		st.Patterns = st.Patterns[len(st.Patterns)-s.patternLimit:]
	}
	snapshot := copyState(st)
	sh.mu.Unlock()

	s.statsMu.Lock()
	s.stats.TotalAttempts++
	if success {
		s.stats.SuccessfulReconnections++
	} else {
		s.stats.FailedReconnections++
	}
	s.stats.AverageReconnectTimeMs = (s.stats.AverageReconnectTimeMs + durationMs) / 2
	s.statsMu.Unlock()

	if s.sink != nil {
		s.sink.TrackAttempt(Event{ClientID: clientID, Record: rec, State: snapshot})
	}
}

// State returns a copy of the client's state and whether it exists.
func (s *Store) State(clientID string) (ClientState, bool) {
	sh := s.shard(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.clients[clientID]
	if !ok {
		return ClientState{}, false
	}
	return copyState(st), true
}

// Stats returns a snapshot of the cross-client counters.
func (s *Store) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// ClientCount returns the number of clients currently tracked.
func (s *Store) ClientCount() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.clients)
		sh.mu.Unlock()
	}
	return n
}

// Reset discards the client's state. It reports whether state existed.
func (s *Store) Reset(clientID string) bool {
	sh := s.shard(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.clients[clientID]; !ok {
		return false
	}
	delete(sh.clients, clientID)
	return true
}

// Cleanup evicts clients whose last attempt is older than the retention
// window and returns how many were removed. It is idempotent and safe to run
// on any schedule.
func (s *Store) Cleanup() int {
	cutoff := s.now().Add(-s.retention)
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, st := range sh.clients {
			if st.LastAttempt != nil && st.LastAttempt.Timestamp.Before(cutoff) {
				delete(sh.clients, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func copyState(st *ClientState) ClientState {
	out := *st
	if st.LastAttempt != nil {
		last := *st.LastAttempt
		out.LastAttempt = &last
	}
	out.Patterns = make([]AttemptRecord, len(st.Patterns))
	copy(out.Patterns, st.Patterns)
	return out
}
