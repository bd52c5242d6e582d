// Package policy decides which observations are worth propagating to the
// destination ledger.
//
// The engine is pure: it reads the current quote, the last accepted quote for
// the same asset and the trigger kind, and returns a Decision. It never holds
// state; the caller owns the last-submitted table.
package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/redemption-relay/internal/model"
)

// Decision is the outcome of evaluating one quote.
type Decision int

const (
	// DecisionFirst accepts the first quote ever seen for an asset.
	DecisionFirst Decision = iota
	// DecisionAccept accepts a quote that passed every gate.
	DecisionAccept
	// DecisionBelowThreshold rejects a variance-check quote that did not move enough.
	DecisionBelowThreshold
	// DecisionTooSoon rejects a quote inside the debounce window.
	DecisionTooSoon
)

// Accepted reports whether the quote should be handed to the submission worker.
func (d Decision) Accepted() bool {
	return d == DecisionFirst || d == DecisionAccept
}

func (d Decision) String() string {
	switch d {
	case DecisionFirst:
		return "first"
	case DecisionAccept:
		return "accept"
	case DecisionBelowThreshold:
		return "below_threshold"
	case DecisionTooSoon:
		return "too_soon"
	default:
		return "unknown"
	}
}

// Config holds the policy thresholds.
type Config struct {
	Threshold            decimal.Decimal // Minimum relative change (0.0025 = 0.25%)
	MinTimeBetweenQuotes time.Duration   // Debounce window
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		Threshold:            decimal.RequireFromString("0.0025"),
		MinTimeBetweenQuotes: 6 * time.Second,
	}
}

// Engine evaluates quotes against the configured thresholds.
type Engine struct {
	cfg Config
}

// New creates a new Engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate decides whether current should be propagated given the last
// accepted quote for the same asset (nil if none) and the trigger kind.
func (e *Engine) Evaluate(current model.Quote, previous *model.Quote, trigger model.Trigger) Decision {
	if previous == nil {
		return DecisionFirst
	}

	// Forced refresh bypasses the variance gate.
	if trigger == model.TriggerVarianceCheck && !e.SignificantChange(current.Value, previous.Value) {
		return DecisionBelowThreshold
	}

	elapsed := time.Duration(current.Timestamp-previous.Timestamp) * time.Second
	if elapsed < e.cfg.MinTimeBetweenQuotes {
		return DecisionTooSoon
	}

	return DecisionAccept
}

// Accept is Evaluate reduced to a yes/no answer.
func (e *Engine) Accept(current model.Quote, previous *model.Quote, trigger model.Trigger) bool {
	return e.Evaluate(current, previous, trigger).Accepted()
}

// SignificantChange reports whether |current-previous|/|previous| exceeds the
// threshold. A zero previous value counts as a maximal change.
func (e *Engine) SignificantChange(current, previous decimal.Decimal) bool {
	if previous.IsZero() {
		return true
	}
	return RelativeChange(current, previous).GreaterThan(e.cfg.Threshold)
}

// RelativeChange returns |current-previous|/|previous|. previous must be non-zero.
func RelativeChange(current, previous decimal.Decimal) decimal.Decimal {
	return current.Sub(previous).Abs().DivRound(previous.Abs(), divisionPrecision)
}

// divisionPrecision is enough digits to compare against thresholds of any
// realistic granularity without rounding a below-threshold change upward.
const divisionPrecision = 36
