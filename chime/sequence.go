package chime

import (
	"context"
	"time"
)

// TimeSequence is a lazy, possibly infinite stream of chime times.
// Elements must be monotonically non-decreasing; the scheduler does not
// sort. Sequences are consumed strictly forward and need not be
// restartable.
type TimeSequence interface {
	// Next returns the next time in the sequence, or ok=false once the
	// sequence is exhausted.
	Next() (time.Time, bool)
}

// SequenceFunc adapts a generator function to a TimeSequence.
type SequenceFunc func() (time.Time, bool)

func (f SequenceFunc) Next() (time.Time, bool) {
	return f()
}

// Times returns a finite sequence over the given times, in the given
// order.
func Times(ts ...time.Time) TimeSequence {
	i := 0
	return SequenceFunc(func() (time.Time, bool) {
		if i >= len(ts) {
			return time.Time{}, false
		}
		t := ts[i]
		i++
		return t, true
	})
}

// Callback is invoked once per chime with the scheduled time. The
// context is cancelled when the schedule is shut down hard; callbacks
// that block should select on ctx.Done() for responsive cancellation.
// A non-nil error is routed to the schedule's error handler.
type Callback func(ctx context.Context, t time.Time) error
