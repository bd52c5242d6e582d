package poller

import (
	"time"

	"github.com/rickgao/redemption-relay/internal/model"
)

// nextDeadline returns when a periodic trigger should fire next, given the
// deadline it last fired for and the current time.
//
// On time, the next deadline is one period later. When late, MissedTickDelay
// fires once immediately and MissedTickSkip realigns to the first scheduled
// tick strictly after now.
func nextDeadline(behavior model.MissedTickBehavior, deadline time.Time, period time.Duration, now time.Time) time.Time {
	next := deadline.Add(period)
	if next.After(now) {
		return next
	}

	switch behavior {
	case model.MissedTickSkip:
		missed := now.Sub(next)/period + 1
		return next.Add(missed * period)
	default:
		return now
	}
}
