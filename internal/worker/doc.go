// Package worker implements the submission worker.
//
// The worker takes one accepted quote at a time from the handoff, writes it
// to the asset's destination contract and waits for the outcome before
// taking the next. Failures are logged and dropped; there is no retry.
package worker
