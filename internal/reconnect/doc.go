// Package reconnect implements the adaptive reconnection intelligence engine
// for the soundboard companion server.
//
// The transport layer (owned by the mobile client) reports a disconnect as a
// free-text reason plus a snapshot of the client's connection history. The
// engine classifies the cause, assesses severity and recoverability, selects a
// retry strategy, perturbs it with the client's rolling history and expands it
// into a concrete retry schedule. Attempt outcomes are reported back through
// the Store, which keeps per-client rolling state, feeds cross-client stats
// and emits tracking events to a sink supplied at construction.
//
// Analysis and schedule generation are pure functions and safe to call
// concurrently without synchronization. The Store serializes access per
// client; distinct clients do not contend on a shared lock.
//
// The engine never fails during normal operation: unknown reasons degrade to
// an adaptive default strategy and unknown client identifiers lazily create
// state. Input validation belongs to the boundary that calls it.
package reconnect
