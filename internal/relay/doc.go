// Package relay assembles the scheduler, handoff and submission worker into
// a running service.
package relay
