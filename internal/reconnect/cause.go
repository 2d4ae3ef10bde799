package reconnect

import "strings"

// Cause is the categorical reason for a disconnection.
type Cause string

const (
	CauseNetworkTimeout     Cause = "network_timeout"
	CauseTransportError     Cause = "transport_error"
	CauseUserInitiated      Cause = "user_initiated"
	CauseServerShutdown     Cause = "server_shutdown"
	CauseAuthFailure        Cause = "authentication_failure"
	CauseResourceExhaustion Cause = "resource_exhaustion"
	CauseUnknown            Cause = "unknown"
)

// causeTable maps reason substrings to causes. Order matters: the first
// matching entry wins, so overlapping keywords must stay whole phrases
// ("ping timeout" before anything that could swallow "timeout").
var causeTable = []struct {
	keyword string
	cause   Cause
}{
	{"ping timeout", CauseNetworkTimeout},
	{"connection timeout", CauseNetworkTimeout},
	{"transport close", CauseTransportError},
	{"transport error", CauseTransportError},
	{"client namespace disconnect", CauseUserInitiated},
	{"io server disconnect", CauseServerShutdown},
	{"server error", CauseServerShutdown},
	{"auth failed", CauseAuthFailure},
	{"resource limit", CauseResourceExhaustion},
}

// ClassifyCause maps a raw disconnect reason to a Cause by case-insensitive
// substring matching against a fixed ordered table. Unmatched reasons return
// CauseUnknown.
func ClassifyCause(reason string) Cause {
	r := strings.ToLower(reason)
	for _, e := range causeTable {
		if strings.Contains(r, e.keyword) {
			return e.cause
		}
	}
	return CauseUnknown
}
