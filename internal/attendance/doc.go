// Package attendance implements the check-in coordinator: the single owner of
// the one attendance round that may be active at a time.
//
// Lifecycle of a round:
//   - OpenRound loads every attendance record of the session, stamps the
//     current round as absent, draws a 4-digit code and arms an expiry timer.
//     Nothing is written to the store except the session's round counter.
//   - VerifyAndMark flips a member's entry to present in the in-memory buffer.
//   - RestartRound either resets the active round in place (warm) or, when the
//     round already expired, reloads the records from the store and opens it
//     again (cold). A cold restart never reuses a stale buffer.
//   - CloseRound, the expiry timer and Shutdown flush the buffer with one bulk
//     upsert and return the coordinator to idle, even when the flush fails.
//
// Locking:
// mu serializes OpenRound, RestartRound, CloseRound and expiry, and is held
// across their store I/O. stateMu guards the active round and its buffer for
// short sections only, so check-ins and reads never wait on the store.
//
// The buffer is not crash-durable: unflushed check-ins are lost if the
// process dies while a round is active.
package attendance
