// Package session implements the AdaptiveLearn portal's client side session
// lifecycle: token acquisition, persistence, refresh, profile loading,
// logout and route protection.
//
// State:
//   - AuthState is a derived cache of a CredentialStore. Hydrate builds it at
//     start up and every change goes through Reduce via a Container, which is
//     owned by the caller and passed explicitly (no package level singleton).
//
// Orchestration:
//   - Orchestrator sequences AuthAPI calls with store writes and dispatches.
//     API failures come back as Result values, refresh failures force a
//     logout and profile failures stay isolated. A token generation counter
//     discards responses that were overtaken by a newer login, refresh or
//     logout.
//
// Route protection:
//   - Evaluate is a pure function from AuthState to a Decision. Guard adds
//     the one shot profile load per mount, and HTTPGuard adapts both to
//     go-router middleware backed by request cookies.
package session
