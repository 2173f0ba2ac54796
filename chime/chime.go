package chime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Schedule is the handle returned by ChimeAt. It represents both the
// whole schedule (Close, Await, Pending) and the currently pending
// chime (CancelCurrent, UntilCurrent, CurrentAt).
type Schedule struct {
	callback Callback

	// exactly one of seq/queue is used: queue backs mutable schedules
	seq   TimeSequence
	queue *timeQueue

	clock clockwork.Clock
	log   *zap.Logger
	ctx   context.Context

	errHandler func(error) bool
	onFinished func()
	onAborted  func()

	dropOverruns bool

	done      chan struct{}
	exited    chan struct{}
	doneFlag  *atomic.Bool
	closing   chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	cur     *pendingChime
	running context.CancelFunc
}

// pendingChime is the single delayed task registered while the
// schedule is live.
type pendingChime struct {
	at        time.Time
	fireAt    time.Time
	timer     clockwork.Timer
	cancel    chan struct{}
	cancelled bool
}

// ChimeAt fires callback at each time produced by seq, serially, on a
// dedicated goroutine. The returned handle is live until seq is
// exhausted, the error handler stops the schedule, or Close is called.
func ChimeAt(seq TimeSequence, callback Callback, opts ...Option) *Schedule {
	o := newOptions(opts)
	s := newSchedule(seq, callback, o)
	go s.run()
	return s
}

func newSchedule(seq TimeSequence, callback Callback, o *options) *Schedule {
	s := &Schedule{
		callback:     callback,
		clock:        o.clock,
		log:          o.log,
		ctx:          o.ctx,
		errHandler:   o.errHandler,
		onFinished:   o.onFinished,
		onAborted:    o.onAborted,
		dropOverruns: o.dropOverruns,
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
		doneFlag:     atomic.NewBool(false),
		closing:      make(chan struct{}),
	}
	if o.mutable {
		s.queue = newTimeQueue(seq)
	} else {
		s.seq = seq
	}
	return s
}

func (s *Schedule) run() {
	defer close(s.exited)
	for {
		t, ok := s.next()
		if !ok {
			s.finish(false)
			return
		}

		delay := t.Sub(s.clock.Now())
		if delay <= 0 && s.dropOverruns {
			s.log.Debug("dropping overrun chime", zap.Time("at", t))
			continue
		}
		if delay < 0 {
			delay = 0
		}

		p := &pendingChime{
			at:     t,
			fireAt: s.clock.Now().Add(delay),
			timer:  s.clock.NewTimer(delay),
			cancel: make(chan struct{}),
		}
		if !s.setCurrent(p) {
			p.timer.Stop()
			return
		}

		select {
		case <-s.closing:
			p.timer.Stop()
			s.clearCurrent()
			s.finish(true)
			return
		case <-p.cancel:
			p.timer.Stop()
			s.clearCurrent()
			if s.doneFlag.Load() {
				return
			}
			// reschedule from the tail
			continue
		case <-p.timer.Chan():
			s.clearCurrent()
			if s.doneFlag.Load() {
				return
			}
			if !s.dispatch(p) {
				s.finish(false)
				return
			}
		}
	}
}

func (s *Schedule) next() (time.Time, bool) {
	if s.queue != nil {
		return s.queue.pop()
	}
	if s.seq == nil {
		return time.Time{}, false
	}
	return s.seq.Next()
}

// dispatch runs the callback for one chime and reports whether the
// schedule should continue.
func (s *Schedule) dispatch(p *pendingChime) bool {
	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.running = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = nil
		s.mu.Unlock()
		cancel()
	}()

	lag := float64(s.clock.Now().Sub(p.fireAt)) / float64(time.Millisecond)
	err := s.invoke(ctx, p.at)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rctx, _ := tag.New(context.Background(), tag.Insert(KeyOutcome, outcome))
	stats.Record(rctx, MChimes.M(1), MDispatchLag.M(lag))

	if err == nil {
		return true
	}
	stats.Record(rctx, MCallbackErrors.M(1))
	return s.handleError(err)
}

func (s *Schedule) invoke(ctx context.Context, t time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chime: callback panic: %v", r)
		}
	}()
	return s.callback(ctx, t)
}

func (s *Schedule) handleError(err error) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("chime error handler panicked", zap.Any("panic", r))
			cont = false
		}
	}()
	return s.errHandler(err)
}

// finish settles the terminal edge. It runs at most once regardless of
// how many paths race into it.
func (s *Schedule) finish(aborted bool) {
	if !s.doneFlag.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	if s.cur != nil && !s.cur.cancelled {
		s.cur.cancelled = true
		close(s.cur.cancel)
	}
	s.mu.Unlock()

	handler := s.onFinished
	if aborted && s.onAborted != nil {
		handler = s.onAborted
	}
	if handler != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("chime completion handler panicked", zap.Any("panic", r))
				}
			}()
			handler()
		}()
	}
	close(s.done)
}

func (s *Schedule) setCurrent(p *pendingChime) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doneFlag.Load() {
		return false
	}
	s.cur = p
	return true
}

func (s *Schedule) clearCurrent() {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
}

// Close requests shutdown. The pending chime is cancelled; a running
// callback is left to finish. The completion handler (OnAborted when
// set, OnFinished otherwise) runs at most once even when Close races
// with exhaustion.
func (s *Schedule) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
	s.finish(true)
	return nil
}

// Done returns the completion latch; it is closed exactly once, on any
// terminal edge.
func (s *Schedule) Done() <-chan struct{} {
	return s.done
}

// Await blocks until the schedule terminates or timeout elapses.
// A non-positive timeout waits indefinitely. Reports whether the
// schedule terminated.
func (s *Schedule) Await(timeout time.Duration) bool {
	if timeout <= 0 {
		<-s.done
		return true
	}
	timer := s.clock.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.Chan():
		return false
	}
}

// Pending reports whether the schedule is still live.
func (s *Schedule) Pending() bool {
	return !s.doneFlag.Load()
}

// Finished reports whether the schedule has terminated.
func (s *Schedule) Finished() bool {
	return s.doneFlag.Load()
}

// CancelCurrent cancels the pending chime. If the schedule is still
// live the scheduler moves on to the next time in the sequence. With
// interrupt set, a callback already running has its context cancelled
// instead. Reports whether a cancellation took effect or the pending
// chime was already cancelled.
func (s *Schedule) CancelCurrent(interrupt bool) bool {
	s.mu.Lock()
	if p := s.cur; p != nil {
		if !p.cancelled {
			p.cancelled = true
			close(p.cancel)
		}
		s.mu.Unlock()
		return true
	}
	running := s.running
	s.mu.Unlock()

	if interrupt && running != nil {
		running()
		return true
	}
	return false
}

// UntilCurrent returns the remaining delay before the pending chime
// fires. A cancelled pending chime reports -1; ok is false when
// nothing is pending.
func (s *Schedule) UntilCurrent() (d time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return 0, false
	}
	if s.cur.cancelled {
		return -1, true
	}
	d = s.cur.fireAt.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// CurrentAt returns the scheduled time of the pending chime, or
// ok=false when nothing is pending or the pending chime was cancelled.
func (s *Schedule) CurrentAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil || s.cur.cancelled {
		return time.Time{}, false
	}
	return s.cur.at, true
}

// Append adds times to the tail of a mutable schedule. Appends after
// termination are accepted but never fire.
func (s *Schedule) Append(ts ...time.Time) error {
	if s.queue == nil {
		return ErrNotMutable
	}
	s.queue.push(ts...)
	return nil
}

// AppendRelativeToLast appends offset(last) where last is the most
// recent time to pass through the schedule's queue.
func (s *Schedule) AppendRelativeToLast(offset func(last time.Time) time.Time) error {
	if s.queue == nil {
		return ErrNotMutable
	}
	s.queue.pushRelative(offset)
	return nil
}

// interrupt cancels the context of a callback run currently in flight.
func (s *Schedule) interrupt() {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running != nil {
		running()
	}
}
