// Package agent coordinates many chime schedules under a single
// id-keyed map. All map mutations flow through a serializing queue;
// jobs remove themselves on their terminal edge.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mewa/chime/chime"
)

type Agent struct {
	log   *zap.Logger
	clock clockwork.Clock

	errHandler func(ID, error) bool
	onFinished func(ID)
	onAborted  func(ID)

	ops      chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu   sync.RWMutex
	jobs map[ID]*entry
}

type Option func(*Agent)

func WithLogger(log *zap.Logger) Option {
	return func(a *Agent) { a.log = log }
}

func WithClock(clock clockwork.Clock) Option {
	return func(a *Agent) { a.clock = clock }
}

// WithErrorHandler routes callback errors with the failing job's id.
// Returning false stops that job.
func WithErrorHandler(h func(ID, error) bool) Option {
	return func(a *Agent) { a.errHandler = h }
}

// OnFinished runs with a job's id after its schedule finishes.
// Handlers must not block on the agent itself.
func OnFinished(f func(ID)) Option {
	return func(a *Agent) { a.onFinished = f }
}

// OnAborted runs with a job's id after its schedule is torn down.
func OnAborted(f func(ID)) Option {
	return func(a *Agent) { a.onAborted = f }
}

func New(opts ...Option) *Agent {
	a := &Agent{
		log:   zap.NewNop(),
		clock: clockwork.NewRealClock(),
		ops:   make(chan func(), 64),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		jobs:  map[ID]*entry{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.errHandler == nil {
		log := a.log
		a.errHandler = func(id ID, err error) bool {
			log.Error("job callback failed", zap.String("id", string(id)), zap.Error(err))
			return true
		}
	}
	go a.run()
	return a
}

// run is the single-writer mutator: operations are applied in
// submission order.
func (a *Agent) run() {
	for {
		select {
		case op := <-a.ops:
			op()
		case <-a.stop:
			close(a.done)
			return
		}
	}
}

func (a *Agent) submit(op func()) {
	select {
	case a.ops <- op:
	case <-a.stop:
	default:
		// full queue: hand off so a mutation submitted from within the
		// mutator cannot deadlock on its own queue
		go func() {
			select {
			case a.ops <- op:
			case <-a.stop:
			}
		}()
	}
}

func (a *Agent) submitWait(op func()) {
	applied := make(chan struct{})
	a.submit(func() {
		op()
		close(applied)
	})
	select {
	case <-applied:
	case <-a.done:
	}
}

// Schedule registers the given jobs. Each Times factory is evaluated
// immediately, in the caller's goroutine; registration is applied
// through the serializing queue. Scheduling under an existing id
// replaces that job.
func (a *Agent) Schedule(jobs map[ID]Job) {
	seqs := make(map[ID]chime.TimeSequence, len(jobs))
	for id, j := range jobs {
		seqs[id] = j.Times()
	}
	a.submitWait(func() {
		for id, j := range jobs {
			a.startJob(id, j.Run, seqs[id])
		}
	})
}

func (a *Agent) startJob(id ID, cb chime.Callback, seq chime.TimeSequence) {
	if old, ok := a.getJob(id); ok {
		a.log.Info("replacing job", zap.String("id", string(id)))
		chime.Shutdown(old.handle)
		a.deleteJob(id, old.handle)
	}

	var h *chime.Schedule
	h = chime.ChimeAt(seq, cb,
		chime.WithClock(a.clock),
		chime.WithLogger(a.log),
		chime.WithErrorHandler(func(err error) bool {
			return a.errHandler(id, err)
		}),
		chime.OnFinished(func() {
			a.jobDone(id, &h, false)
		}),
		chime.OnAborted(func() {
			a.jobDone(id, &h, true)
		}),
	)
	a.setJob(id, &entry{handle: h, state: Started})
	a.log.Info("job scheduled", zap.String("id", string(id)))
}

// jobDone removes the job through the serializing queue, then invokes
// the user's id-aware handler.
func (a *Agent) jobDone(id ID, h **chime.Schedule, aborted bool) {
	a.submit(func() {
		if e, ok := a.getJob(id); ok && e.handle == *h {
			e.state = Done
			a.deleteJob(id, e.handle)
			a.log.Info("job removed", zap.String("id", string(id)), zap.Bool("aborted", aborted))
		}
	})
	if aborted {
		if a.onAborted != nil {
			a.onAborted(id)
			return
		}
	}
	if a.onFinished != nil {
		a.onFinished(id)
	}
}

// Unschedule gracefully shuts down the given jobs, or all jobs when
// none are named. With delay > 0 the teardown itself is scheduled as a
// one-shot chime.
func (a *Agent) Unschedule(delay time.Duration, ids ...ID) {
	if delay > 0 {
		at := a.clock.Now().Add(delay)
		chime.ChimeAt(chime.Times(at), func(ctx context.Context, t time.Time) error {
			a.unschedule(false, ids)
			return nil
		}, chime.WithClock(a.clock), chime.WithLogger(a.log))
		return
	}
	a.unschedule(false, ids)
}

// UnscheduleNow is Unschedule with hard shutdown: running callbacks
// have their context cancelled.
func (a *Agent) UnscheduleNow(ids ...ID) error {
	return a.unschedule(true, ids)
}

func (a *Agent) unschedule(hard bool, ids []ID) error {
	var errs error
	a.submitWait(func() {
		targets := ids
		if len(targets) == 0 {
			targets = a.allIDs()
		}
		for _, id := range targets {
			e, ok := a.getJob(id)
			if !ok {
				continue
			}
			if hard {
				errs = multierr.Append(errs, chime.ShutdownNow(e.handle))
			} else {
				errs = multierr.Append(errs, chime.Shutdown(e.handle))
			}
			a.deleteJob(id, e.handle)
			a.log.Info("job unscheduled", zap.String("id", string(id)))
		}
	})
	return errs
}

// Stop tears down every job and stops the mutator.
func (a *Agent) Stop() error {
	err := a.unschedule(false, nil)
	a.stopOnce.Do(func() {
		close(a.stop)
	})
	<-a.done
	return err
}

func (a *Agent) getJob(id ID) (*entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.jobs[id]
	return e, ok
}

func (a *Agent) setJob(id ID, e *entry) {
	a.mu.Lock()
	a.jobs[id] = e
	a.mu.Unlock()
}

// deleteJob removes id only while it still maps to h, so a stale
// removal cannot evict a replacement job.
func (a *Agent) deleteJob(id ID, h *chime.Schedule) {
	a.mu.Lock()
	if e, ok := a.jobs[id]; ok && e.handle == h {
		delete(a.jobs, id)
	}
	a.mu.Unlock()
}

func (a *Agent) allIDs() []ID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]ID, 0, len(a.jobs))
	for id := range a.jobs {
		ids = append(ids, id)
	}
	return ids
}
