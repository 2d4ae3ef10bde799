package reconnect

// Strategy is a named retry policy controlling the shape of the schedule.
type Strategy string

const (
	StrategyImmediateRetry     Strategy = "immediate_retry"
	StrategyExponentialBackoff Strategy = "exponential_backoff"
	StrategyLinearBackoff      Strategy = "linear_backoff"
	StrategyAdaptiveTiming     Strategy = "adaptive_timing"
	StrategyTransportSwitch    Strategy = "transport_switch"
	StrategyUserPrompt         Strategy = "user_prompt"
)

// ParseStrategy converts a wire value into a Strategy. The second return
// value reports whether the input named a known strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyImmediateRetry, StrategyExponentialBackoff, StrategyLinearBackoff,
		StrategyAdaptiveTiming, StrategyTransportSwitch, StrategyUserPrompt:
		return Strategy(s), true
	}
	return "", false
}

// Contextual factor labels attached to an analysis. The schedule generator
// keys adaptive base adjustments off these.
const (
	factorNetworkInstability   = "network_instability"
	factorServerMaintenance    = "server_maintenance"
	factorTransportInstability = "transport_instability"
	factorAuthIssue            = "auth_issue"
	factorResourcePressure     = "resource_pressure"
	factorManualDisconnect     = "manual_disconnect"
	factorMobileNetwork        = "mobile_network"
)

// selection is the baseline retry policy picked for a cause before history
// adjustment.
type selection struct {
	strategy    Strategy
	multiplier  float64
	maxAttempts int
	factor      string
}

// strategyTable is the fixed cause → baseline policy mapping. UserPrompt with
// zero attempts means the engine declines to auto-retry and the drop is
// surfaced to the user instead.
var strategyTable = map[Cause]selection{
	CauseNetworkTimeout:     {StrategyExponentialBackoff, 1.5, 8, factorNetworkInstability},
	CauseServerShutdown:     {StrategyLinearBackoff, 2.0, 5, factorServerMaintenance},
	CauseTransportError:     {StrategyTransportSwitch, 0.5, 6, factorTransportInstability},
	CauseAuthFailure:        {StrategyUserPrompt, 0, 0, factorAuthIssue},
	CauseResourceExhaustion: {StrategyAdaptiveTiming, 3.0, 4, factorResourcePressure},
	CauseUserInitiated:      {StrategyUserPrompt, 0, 0, factorManualDisconnect},
}

// defaultSelection handles CauseUnknown and any future unmapped cause.
var defaultSelection = selection{StrategyAdaptiveTiming, 1.2, 6, ""}

func selectStrategy(cause Cause) selection {
	if sel, ok := strategyTable[cause]; ok {
		return sel
	}
	return defaultSelection
}
