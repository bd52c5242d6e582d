// Package asset implements the Asset Registry.
//
// The registry is the fixed set of tracked assets built once from
// configuration. It never changes after startup, so reads need no locking.
package asset
