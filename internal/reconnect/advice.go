package reconnect

// Priority orders recommendations for the telemetry surface.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Recommendation is a diagnostic hint derived from a client's pattern log.
// Recommendations inform telemetry and operators; they never gate retries.
type Recommendation struct {
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
	Reason   string   `json:"reason"`
}

// Thresholds for recommendation rules.
const (
	lowSuccessRateCutoff  = 0.3
	slowAttemptCutoffMs   = 10000
	recommendationWindow  = 10
	predictionWindow      = 5
	minPatternsForPredict = 3
	defaultPrediction     = 0.7
)

// strategyPredictionFactor scales the observed success rate per proposed
// strategy. Unlisted strategies are neutral.
var strategyPredictionFactor = map[Strategy]float64{
	StrategyImmediateRetry:     0.8,
	StrategyExponentialBackoff: 1.2,
	StrategyTransportSwitch:    1.1,
	StrategyAdaptiveTiming:     1.3,
}

// Recommendations derives diagnostic hints for a client. Unknown clients get
// an empty list. Multiple recommendations may co-occur.
func (s *Store) Recommendations(clientID string) []Recommendation {
	st, ok := s.State(clientID)
	if !ok {
		return []Recommendation{}
	}

	recs := []Recommendation{}
	if successRate(lastPatterns(st.Patterns, recommendationWindow)) < lowSuccessRateCutoff {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Action:   "change_connection_method",
			Reason:   "success rate below 30% over recent attempts",
		})
	}
	if st.Failures > st.Successes*2 {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Action:   "increase_backoff",
			Reason:   "failures heavily outweigh successes",
		})
	}
	if st.Attempts > 0 && st.TotalDurationMs/float64(st.Attempts) > slowAttemptCutoffMs {
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Action:   "relax_timeouts",
			Reason:   "average attempt duration suggests timeouts are too aggressive",
		})
	}
	return recs
}

// PredictSuccess estimates the probability that the proposed strategy
// reconnects the client, from the recent pattern log. With fewer than 3
// recorded patterns it returns the fixed default 0.7. The result is clamped
// to [0, 1].
func (s *Store) PredictSuccess(clientID string, proposed Strategy) float64 {
	st, ok := s.State(clientID)
	if !ok || len(st.Patterns) < minPatternsForPredict {
		return defaultPrediction
	}

	p := successRate(lastPatterns(st.Patterns, predictionWindow))
	if f, ok := strategyPredictionFactor[proposed]; ok {
		p *= f
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

func lastPatterns(patterns []AttemptRecord, n int) []AttemptRecord {
	if len(patterns) > n {
		return patterns[len(patterns)-n:]
	}
	return patterns
}

func successRate(patterns []AttemptRecord) float64 {
	if len(patterns) == 0 {
		return 0
	}
	ok := 0
	for _, p := range patterns {
		if p.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(patterns))
}
