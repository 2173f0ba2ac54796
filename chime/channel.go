package chime

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Channel bridges a schedule into a bounded channel of chime times.
type Channel struct {
	// C receives one element per chime; it is closed when the schedule
	// terminates.
	C <-chan time.Time

	ch    chan time.Time
	stop  chan struct{}
	sched *Schedule
}

// Chan runs a schedule whose chimes flow into a bounded channel.
// Buffer capacity and full-channel policy come from WithBuffer and
// WithBufferPolicy; all other options apply as in ChimeAt. An error
// handler returning false terminates the schedule and closes C.
func Chan(seq TimeSequence, opts ...Option) *Channel {
	o := newOptions(opts)

	c := &Channel{
		ch:   make(chan time.Time, o.buffer),
		stop: make(chan struct{}),
	}
	c.C = c.ch

	policy := o.policy
	log := o.log
	c.sched = newSchedule(seq, func(ctx context.Context, t time.Time) error {
		return c.push(ctx, t, policy, log)
	}, o)

	go c.sched.run()
	go c.closeWhenDone()
	return c
}

func (c *Channel) push(ctx context.Context, t time.Time, policy BufferPolicy, log *zap.Logger) error {
	switch policy {
	case DropNewest:
		select {
		case c.ch <- t:
		case <-c.stop:
		default:
			log.Warn("chime channel full, dropping chime", zap.Time("at", t))
		}
	case Sliding:
		for {
			select {
			case c.ch <- t:
				return nil
			case <-c.stop:
				return nil
			default:
			}
			// make room by discarding the oldest buffered chime
			select {
			case <-c.ch:
			default:
			}
		}
	default: // Blocking
		select {
		case c.ch <- t:
		case <-c.stop:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// closeWhenDone closes C once the scheduler goroutine has fully
// stopped, so no send can race the close.
func (c *Channel) closeWhenDone() {
	<-c.sched.Done()
	close(c.stop)
	<-c.sched.exited
	close(c.ch)
}

// Schedule returns the underlying schedule handle.
func (c *Channel) Schedule() *Schedule {
	return c.sched
}

// Close shuts the schedule down; C is closed once the scheduler has
// stopped.
func (c *Channel) Close() error {
	return c.sched.Close()
}
