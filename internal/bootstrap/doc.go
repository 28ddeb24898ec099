// Package bootstrap drives a built image from "code present" to "accepting
// connections".
//
// The sequence is strictly ordered:
//
//	migrating -> serving
//
// Pending schema migrations are applied first. The application server is
// started only after migrations succeed, bound to all interfaces on the
// configured port. A migration failure ends the run with a *PhaseError and
// the server is never started. There are no retries and no degraded mode.
package bootstrap
