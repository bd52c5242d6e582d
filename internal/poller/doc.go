// Package poller implements the sweep scheduler.
//
// The scheduler:
//   - Runs a variance-check sweep every check period (first one period after start)
//   - Runs a forced-refresh sweep every submission period (first one immediately)
//   - Reads every tracked asset concurrently, then filters sequentially
//   - Hands accepted quotes to the submission worker, blocking when it is busy
//   - Owns the last-submitted table, updated only after a successful handoff
package poller
