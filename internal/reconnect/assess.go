package reconnect

import "strings"

// Severity grades how serious a disconnection is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Recoverability estimates whether a reconnection is likely to succeed at all.
type Recoverability string

const (
	RecoverabilityLow    Recoverability = "low"
	RecoverabilityMedium Recoverability = "medium"
	RecoverabilityHigh   Recoverability = "high"
)

// History is a read-only snapshot of a client's recent connection behavior,
// owned by the transport layer. The engine never mutates it.
type History struct {
	RecentFailures      int    `json:"recentFailures"`
	LongestConnectionMs int64  `json:"longestConnectionMs"`
	ServerRestarts      int    `json:"serverRestarts"`
	NetworkType         string `json:"networkType"`
}

// assessSeverity derives a severity level from the raw reason and history.
// Rules apply in order, last applicable wins, except that a client with more
// than 3 recent failures is always high severity.
func assessSeverity(reason string, h History) Severity {
	r := strings.ToLower(reason)
	sev := SeverityMedium
	if strings.Contains(r, "timeout") || strings.Contains(r, "error") {
		sev = SeverityHigh
	}
	if strings.Contains(r, "client") || strings.Contains(r, "user") {
		sev = SeverityLow
	}
	if h.RecentFailures > 3 {
		sev = SeverityHigh
	}
	return sev
}

// assessRecoverability estimates recoverability from the raw reason and
// history. Branches are evaluated in order, first match wins.
func assessRecoverability(reason string, h History) Recoverability {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "auth") || strings.Contains(r, "user"):
		return RecoverabilityLow
	case strings.Contains(r, "server") && h.ServerRestarts > 0:
		return RecoverabilityMedium
	case strings.Contains(r, "timeout") || strings.Contains(r, "transport"):
		return RecoverabilityHigh
	default:
		return RecoverabilityMedium
	}
}
