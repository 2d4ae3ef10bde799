package reconnect

// Analysis is the engine's verdict on a single disconnection event. It is
// produced once per event, immutable after creation and consumed
// synchronously to build a schedule.
type Analysis struct {
	Cause             Cause          `json:"cause"`
	Severity          Severity       `json:"severity"`
	Recoverability    Recoverability `json:"recoverability"`
	Strategy          Strategy       `json:"strategy"`
	BackoffMultiplier float64        `json:"backoffMultiplier"`
	MaxAttempts       int            `json:"maxAttempts"`
	ContextualFactors []string       `json:"contextualFactors"`
}

// HasFactor reports whether the analysis carries the given contextual factor.
func (a Analysis) HasFactor(f string) bool {
	for _, have := range a.ContextualFactors {
		if have == f {
			return true
		}
	}
	return false
}

func (a *Analysis) addFactor(f string) {
	if f != "" && !a.HasFactor(f) {
		a.ContextualFactors = append(a.ContextualFactors, f)
	}
}

// Analyze classifies a disconnect reason, assesses it against the client's
// history and returns the selected, history-adjusted retry policy. It is a
// pure function over its inputs and never fails.
func Analyze(reason string, h History) Analysis {
	cause := ClassifyCause(reason)
	sel := selectStrategy(cause)

	a := Analysis{
		Cause:             cause,
		Severity:          assessSeverity(reason, h),
		Recoverability:    assessRecoverability(reason, h),
		Strategy:          sel.strategy,
		BackoffMultiplier: sel.multiplier,
		MaxAttempts:       sel.maxAttempts,
		ContextualFactors: []string{},
	}
	a.addFactor(sel.factor)

	// UserPrompt is a terminal decision: nothing to tune, no schedule follows.
	if a.Strategy == StrategyUserPrompt {
		return a
	}

	// History adjustment. The three rules are independent and apply in this
	// fixed order whenever their conditions hold.
	if h.RecentFailures > 5 {
		a.BackoffMultiplier *= 1.5
		a.MaxAttempts = max(3, a.MaxAttempts-2)
	}
	if h.LongestConnectionMs > 300000 {
		a.BackoffMultiplier *= 0.8
		a.MaxAttempts += 2
	}
	if h.NetworkType == "mobile" {
		a.BackoffMultiplier *= 1.3
		a.addFactor(factorMobileNetwork)
	}

	return a
}
