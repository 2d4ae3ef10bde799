package reconnect

import (
	"math"
	"time"
)

// DefaultBaseDelayMs is the base delay used when the caller does not supply
// one.
const DefaultBaseDelayMs = 1000

// maxDelayMs is the hard ceiling for exponential and adaptive delays.
const maxDelayMs = 30000

// Transport hints handed back to the client-side transport.
const (
	TransportWebsocket = "websocket"
	TransportPolling   = "polling"
)

// ScheduleEntry is one planned retry attempt.
type ScheduleEntry struct {
	Attempt   int     `json:"attempt"`
	DelayMs   float64 `json:"delayMs"`
	Transport string  `json:"transport"`
	Adaptive  bool    `json:"adaptive"`
}

// Schedule is an ordered retry plan, attempt numbers contiguous from 1.
type Schedule []ScheduleEntry

// NextDelayFunc adapts the schedule for a plan-driven retry executor: the
// returned function reports the delay before retry number attempt and false
// once the plan is exhausted. The signature matches retry.Config.NextDelay.
func (s Schedule) NextDelayFunc() func(attempt int, err error) (time.Duration, bool) {
	return func(attempt int, _ error) (time.Duration, bool) {
		if attempt < 1 || attempt > len(s) {
			return 0, false
		}
		return time.Duration(s[attempt-1].DelayMs * float64(time.Millisecond)), true
	}
}

// BuildSchedule expands an analysis into a concrete retry plan of exactly
// MaxAttempts entries. A non-positive baseDelayMs falls back to
// DefaultBaseDelayMs. Entries are freshly allocated per call and never shared
// across clients. A UserPrompt analysis yields an empty schedule.
func BuildSchedule(a Analysis, baseDelayMs float64) Schedule {
	if baseDelayMs <= 0 {
		baseDelayMs = DefaultBaseDelayMs
	}
	if a.MaxAttempts <= 0 {
		return Schedule{}
	}

	adaptiveBase := float64(DefaultBaseDelayMs)
	if a.HasFactor(factorNetworkInstability) {
		adaptiveBase *= 2
	}
	if a.HasFactor(factorResourcePressure) {
		adaptiveBase *= 3
	}
	if a.HasFactor(factorMobileNetwork) {
		adaptiveBase *= 1.5
	}

	plan := make(Schedule, 0, a.MaxAttempts)
	current := baseDelayMs
	for attempt := 1; attempt <= a.MaxAttempts; attempt++ {
		entry := ScheduleEntry{Attempt: attempt, Transport: TransportWebsocket}

		switch a.Strategy {
		case StrategyImmediateRetry:
			entry.DelayMs = 100
		case StrategyExponentialBackoff:
			entry.DelayMs = current
			current = math.Min(current*a.BackoffMultiplier, maxDelayMs)
		case StrategyLinearBackoff:
			entry.DelayMs = baseDelayMs * float64(attempt) * a.BackoffMultiplier
		case StrategyAdaptiveTiming:
			entry.DelayMs = math.Min(adaptiveBase*math.Pow(1.4, float64(attempt-1)), maxDelayMs)
			entry.Adaptive = true
		case StrategyTransportSwitch:
			if attempt%2 == 0 {
				entry.Transport = TransportPolling
			}
			entry.DelayMs = current
			current *= 1.2
		default:
			entry.DelayMs = current
			current *= 1.5
		}

		plan = append(plan, entry)
	}
	return plan
}
