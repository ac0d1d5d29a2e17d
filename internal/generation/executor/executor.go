// Package executor runs a single outbound call under a per-attempt timeout
// and a bounded retry loop with linear backoff. It knows nothing about
// prompts or domain data.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 15 * time.Second
	DefaultBackoff     = time.Second
)

// ErrAttemptTimeout is reported when an attempt outlives its timeout.
var ErrAttemptTimeout = errors.New("attempt timed out")

// Policy bounds one call. Zero fields take the package defaults.
type Policy struct {
	Name        string
	MaxAttempts int
	Timeout     time.Duration
	// Backoff is the unit of the linear schedule: attempt n waits n*Backoff
	// before attempt n+1.
	Backoff time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Name == "" {
		p.Name = "default"
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	} else if p.Backoff == 0 {
		p.Backoff = DefaultBackoff
	}
	return p
}

// Schedule returns the waits taken between attempts when every attempt fails.
func (p Policy) Schedule() []time.Duration {
	p = p.withDefaults()
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		out = append(out, time.Duration(attempt)*p.Backoff)
	}
	return out
}

// Failure is returned once the retry budget is spent or the caller gave up.
type Failure struct {
	Policy    string
	Attempts  int
	TimedOut  bool
	Cancelled bool
	Err       error
}

func (f *Failure) Error() string {
	switch {
	case f.Cancelled:
		return fmt.Sprintf("%s: cancelled after %d attempt(s): %v", f.Policy, f.Attempts, f.Err)
	case f.TimedOut:
		return fmt.Sprintf("%s: timed out after %d attempt(s): %v", f.Policy, f.Attempts, f.Err)
	default:
		return fmt.Sprintf("%s: failed after %d attempt(s): %v", f.Policy, f.Attempts, f.Err)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Run stops at the first
// permanent error and reports it unwrapped in the Failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

type retryState struct {
	attempt  int
	timedOut bool
	lastErr  error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Executor struct {
	logger logger.Logger
	sleep  SleepFunc
}

type Option func(*Executor)

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

func New(log logger.Logger, opts ...Option) *Executor {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	e := &Executor{
		logger: log.WithFields(map[string]interface{}{"component": "executor"}),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run invokes call until it succeeds or the policy is exhausted. Any error
// is retried. The returned error is always a *Failure.
func Run[T any](ctx context.Context, e *Executor, p Policy, call func(context.Context) (T, error)) (T, error) {
	var zero T
	p = p.withDefaults()
	start := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
	}()

	var st retryState
	for st.attempt < p.MaxAttempts {
		st.attempt++

		v, timedOut, err := runAttempt(ctx, p.Timeout, call)
		if err == nil {
			metrics.GenerationAttempts.WithLabelValues(p.Name, "success").Inc()
			if st.attempt > 1 {
				e.logger.Info("call succeeded after retry", map[string]interface{}{
					"policy":  p.Name,
					"attempt": st.attempt,
				})
			}
			return v, nil
		}

		st.lastErr = err
		st.timedOut = timedOut
		outcome := "error"
		if timedOut {
			outcome = "timeout"
		}
		metrics.GenerationAttempts.WithLabelValues(p.Name, outcome).Inc()

		if ctx.Err() != nil {
			return zero, &Failure{Policy: p.Name, Attempts: st.attempt, Cancelled: true, Err: ctx.Err()}
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			e.logger.Warn("call failed permanently", map[string]interface{}{
				"policy":  p.Name,
				"attempt": st.attempt,
				"error":   perm.err.Error(),
			})
			return zero, &Failure{Policy: p.Name, Attempts: st.attempt, Err: perm.err}
		}

		e.logger.Warn("call attempt failed", map[string]interface{}{
			"policy":      p.Name,
			"attempt":     st.attempt,
			"maxAttempts": p.MaxAttempts,
			"timedOut":    timedOut,
			"error":       err.Error(),
		})

		if st.attempt < p.MaxAttempts {
			if err := e.sleep(ctx, time.Duration(st.attempt)*p.Backoff); err != nil {
				return zero, &Failure{Policy: p.Name, Attempts: st.attempt, Cancelled: true, Err: err}
			}
		}
	}

	metrics.GenerationExhausted.WithLabelValues(p.Name).Inc()
	e.logger.Error("call exhausted retries", map[string]interface{}{
		"policy":   p.Name,
		"attempts": st.attempt,
		"error":    st.lastErr.Error(),
	})
	return zero, &Failure{Policy: p.Name, Attempts: st.attempt, TimedOut: st.timedOut, Err: st.lastErr}
}

type outcome[T any] struct {
	v   T
	err error
}

// runAttempt abandons the call at the deadline even if it ignores ctx.
func runAttempt[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("call panicked: %v", r)}
			}
		}()
		v, err := call(attemptCtx)
		done <- outcome[T]{v: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
			return zero, timedOut, o.err
		}
		return o.v, false, nil
	case <-attemptCtx.Done():
		select {
		case o := <-done:
			if o.err == nil {
				return o.v, false, nil
			}
		default:
		}
		if ctx.Err() != nil {
			return zero, false, ctx.Err()
		}
		return zero, true, fmt.Errorf("%w after %s", ErrAttemptTimeout, timeout)
	}
}
