package times

import (
	"time"

	"github.com/mewa/chime/chime"
)

// Backoff produces times spaced by an exponentially growing wait:
// start, start+min, start+3*min, ... doubling each step up to max.
// Useful as a retry schedule.
func Backoff(start time.Time, min, max time.Duration) chime.TimeSequence {
	next := start
	wait := min

	return chime.SequenceFunc(func() (time.Time, bool) {
		t := next
		next = next.Add(wait)
		wait *= 2
		if wait > max {
			wait = max
		}
		return t, true
	})
}
