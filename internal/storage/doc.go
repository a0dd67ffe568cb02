// Package storage persists the per-user send cooldown.
//
// The store maps a user id to the last time a welcome message was sent to
// them. ShouldSend is both the permission check and the record update in a
// single atomic step, so two near-simultaneous join requests from the same
// user can never both be permitted.
package storage
