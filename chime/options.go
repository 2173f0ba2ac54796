package chime

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// BufferPolicy selects what Chan does with a chime when its channel is
// full.
type BufferPolicy int

const (
	// Blocking waits for the reader, delaying subsequent chimes.
	Blocking BufferPolicy = iota
	// DropNewest discards the chime.
	DropNewest
	// Sliding discards the oldest buffered chime to make room.
	Sliding
)

type options struct {
	clock clockwork.Clock
	log   *zap.Logger
	ctx   context.Context

	errHandler func(error) bool
	onFinished func()
	onAborted  func()

	dropOverruns bool
	mutable      bool

	buffer int
	policy BufferPolicy
}

type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		clock: clockwork.NewRealClock(),
		log:   zap.NewNop(),
		ctx:   context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.errHandler == nil {
		log := o.log
		o.errHandler = func(err error) bool {
			log.Error("chime callback failed", zap.Error(err))
			return true
		}
	}
	return o
}

// WithClock substitutes the wall clock. All now-reads and timers go
// through it.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithContext sets the parent context for callback invocations. Hard
// shutdown cancels the per-chime child context derived from it.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithErrorHandler decides whether the schedule continues after a
// callback error. Returning false terminates the schedule cleanly. The
// default handler logs and continues.
func WithErrorHandler(h func(error) bool) Option {
	return func(o *options) { o.errHandler = h }
}

// OnFinished runs exactly once when the sequence is exhausted or the
// error handler stops the schedule.
func OnFinished(f func()) Option {
	return func(o *options) { o.onFinished = f }
}

// OnAborted runs exactly once when the schedule is closed by the
// caller. Without it, Close falls back to the OnFinished handler.
func OnAborted(f func()) Option {
	return func(o *options) { o.onAborted = f }
}

// DropOverruns skips chime times already in the past at scheduling
// time instead of firing them immediately.
func DropOverruns() Option {
	return func(o *options) { o.dropOverruns = true }
}

// Mutable backs the schedule with an appendable queue. The initial
// sequence is drained into the queue up front and must be finite.
func Mutable() Option {
	return func(o *options) { o.mutable = true }
}

// WithBuffer sets the channel capacity used by Chan.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// WithBufferPolicy sets the full-channel policy used by Chan.
func WithBufferPolicy(p BufferPolicy) Option {
	return func(o *options) { o.policy = p }
}
