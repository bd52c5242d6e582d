package model

// Trigger identifies which timer caused a sweep.
type Trigger int

const (
	// TriggerVarianceCheck is the fast timer. Quotes are only propagated
	// when the value moved past the variance threshold.
	TriggerVarianceCheck Trigger = iota

	// TriggerForcedRefresh is the slow timer. Quotes bypass the variance
	// gate so the destination never goes stale.
	TriggerForcedRefresh
)

func (t Trigger) String() string {
	switch t {
	case TriggerVarianceCheck:
		return "variance_check"
	case TriggerForcedRefresh:
		return "forced_refresh"
	default:
		return "unknown"
	}
}

// MissedTickBehavior returns how the trigger's timer handles ticks that were
// missed while a sweep was running.
func (t Trigger) MissedTickBehavior() MissedTickBehavior {
	if t == TriggerForcedRefresh {
		return MissedTickSkip
	}
	return MissedTickDelay
}

// MissedTickBehavior selects the catch-up policy of a periodic trigger.
type MissedTickBehavior int

const (
	// MissedTickDelay fires a missed tick once, late, and schedules the
	// following tick one period after that late fire.
	MissedTickDelay MissedTickBehavior = iota

	// MissedTickSkip drops missed ticks and realigns to the original schedule.
	MissedTickSkip
)

func (b MissedTickBehavior) String() string {
	switch b {
	case MissedTickDelay:
		return "delay"
	case MissedTickSkip:
		return "skip"
	default:
		return "unknown"
	}
}
