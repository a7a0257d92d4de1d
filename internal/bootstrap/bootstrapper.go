// Package bootstrap constructs the application once per warm process.
//
// The first caller runs the boot function; callers arriving while it runs
// wait for the same outcome. A successful instance is kept for the rest of
// the process. A failed boot is forgotten so the next caller tries again.
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pricofy/cms-lambda/internal/metrics"
)

// State is the lifecycle state of the application instance.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BootFunc builds the application instance.
type BootFunc[T any] func(ctx context.Context) (T, error)

// flight is one boot attempt shared by everyone waiting on it.
type flight[T any] struct {
	done     chan struct{}
	instance T
	err      error
	waiters  int
}

// Bootstrapper memoizes the result of a successful boot.
type Bootstrapper[T any] struct {
	boot BootFunc[T]
	log  *zap.Logger

	mu       sync.Mutex
	state    State
	instance T
	current  *flight[T]
	attempts int
}

// Option configures a Bootstrapper.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger used for boot progress.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// New returns a Bootstrapper in the Uninitialized state.
func New[T any](boot BootFunc[T], opts ...Option) *Bootstrapper[T] {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bootstrapper[T]{boot: boot, log: o.log}
}

// Instance returns the application, booting it if needed. It is safe for
// concurrent use; at most one boot runs at any time.
func (b *Bootstrapper[T]) Instance(ctx context.Context) (T, error) {
	b.mu.Lock()
	switch b.state {
	case Ready:
		inst := b.instance
		b.mu.Unlock()
		return inst, nil
	case Initializing:
		f := b.current
		f.waiters++
		b.mu.Unlock()
		<-f.done
		return f.instance, f.err
	}

	f := &flight[T]{done: make(chan struct{})}
	b.current = f
	b.state = Initializing
	b.attempts++
	attempt := b.attempts
	b.mu.Unlock()

	b.run(context.WithoutCancel(ctx), f, attempt)
	return f.instance, f.err
}

// State reports the current lifecycle state.
func (b *Bootstrapper[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// waiting reports how many callers are blocked on the boot in flight.
func (b *Bootstrapper[T]) waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || b.state != Initializing {
		return 0
	}
	return b.current.waiters
}

// Attempts reports how many boot sequences have been started.
func (b *Bootstrapper[T]) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

func (b *Bootstrapper[T]) run(ctx context.Context, f *flight[T], attempt int) {
	log := b.log.With(zap.Int("attempt", attempt))
	log.Info("Booting application")
	start := time.Now()

	f.instance, f.err = b.call(ctx)
	elapsed := time.Since(start)
	metrics.RecordBoot(f.err, elapsed)

	b.mu.Lock()
	if f.err != nil {
		var zero T
		f.instance = zero
		b.state = Failed
		b.current = nil
	} else {
		b.state = Ready
		b.instance = f.instance
	}
	b.mu.Unlock()
	close(f.done)

	if f.err != nil {
		log.Error("Application boot failed", zap.Duration("elapsed", elapsed), zap.Error(f.err))
		return
	}
	log.Info("Application ready", zap.Duration("elapsed", elapsed))
}

func (b *Bootstrapper[T]) call(ctx context.Context) (inst T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("boot panicked: %v", r)
		}
	}()
	inst, err = b.boot(ctx)
	if err != nil {
		err = errors.WithStack(err)
	}
	return inst, err
}
