// Package future provides the Value combinator the engine schedules with: a
// value that is either immediately available or pending completion. Most
// field accesses are trivial and synchronous, so Map and FlatMap run without
// any scheduling cost when applied to a completed Value; continuations are
// registered only for pending ones.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrCanceled marks a Value that was abandoned by operation-level
// cancellation. It is a distinct signal from ordinary failure so cleanup
// logic can tell "shut down" from "failed".
var ErrCanceled = errors.New("operation canceled")

// IsCanceled reports whether err represents cancellation, either the
// engine's own signal or a context one.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

type canceledError struct{ cause error }

func (c *canceledError) Error() string { return "operation canceled: " + c.cause.Error() }

func (c *canceledError) Unwrap() []error { return []error{ErrCanceled, c.cause} }

// CanceledError wraps cause so that both ErrCanceled and the cause remain
// visible through errors.Is. A nil cause yields ErrCanceled itself.
func CanceledError(cause error) error {
	if cause == nil {
		return ErrCanceled
	}
	return &canceledError{cause: cause}
}

// Value is an async-or-immediate container for one result.
//
// A Value is created completed (Of, Err) or pending (Pending). A pending
// Value is completed exactly once; later completions are ignored. All
// observers of one Value see the same outcome.
type Value[T any] struct {
	mu        sync.Mutex
	completed bool
	val       T
	err       error
	waiters   []func(T, error)
	done      chan struct{}
}

// Of returns an immediately successful Value.
func Of[T any](val T) *Value[T] {
	return &Value[T]{completed: true, val: val}
}

// Err returns an immediately failed Value.
func Err[T any](err error) *Value[T] {
	return &Value[T]{completed: true, err: err}
}

// Pending returns an incomplete Value to be completed later via Complete,
// Fail, or Cancel.
func Pending[T any]() *Value[T] {
	return &Value[T]{}
}

// Complete fulfills the Value. It reports whether this call won; a Value
// completes at most once.
func (v *Value[T]) Complete(val T) bool {
	return v.settle(val, nil)
}

// Fail completes the Value with an error.
func (v *Value[T]) Fail(err error) bool {
	var zero T
	return v.settle(zero, err)
}

// Cancel completes the Value with a cancellation error carrying cause.
func (v *Value[T]) Cancel(cause error) bool {
	var zero T
	return v.settle(zero, CanceledError(cause))
}

func (v *Value[T]) settle(val T, err error) bool {
	v.mu.Lock()
	if v.completed {
		v.mu.Unlock()
		return false
	}
	v.completed = true
	v.val = val
	v.err = err
	waiters := v.waiters
	v.waiters = nil
	done := v.done
	v.mu.Unlock()

	if done != nil {
		close(done)
	}
	for _, fn := range waiters {
		fn(val, err)
	}
	return true
}

// IsDone reports whether the Value has completed.
func (v *Value[T]) IsDone() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.completed
}

// Peek returns the outcome without blocking. ok is false while pending.
func (v *Value[T]) Peek() (val T, err error, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val, v.err, v.completed
}

// Get waits for the outcome. It is the suspension point: a canceled ctx
// yields a cancellation error rather than a hang.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.Lock()
	if v.completed {
		val, err := v.val, v.err
		v.mu.Unlock()
		return val, err
	}
	if v.done == nil {
		v.done = make(chan struct{})
	}
	done := v.done
	v.mu.Unlock()

	select {
	case <-done:
		v.mu.Lock()
		val, err := v.val, v.err
		v.mu.Unlock()
		return val, err
	case <-ctx.Done():
		var zero T
		return zero, CanceledError(ctx.Err())
	}
}

// Subscribe registers fn to run on completion. If the Value is already
// complete, fn runs synchronously before Subscribe returns. fn runs on the
// completing goroutine otherwise.
func (v *Value[T]) Subscribe(fn func(T, error)) {
	v.mu.Lock()
	if v.completed {
		val, err := v.val, v.err
		v.mu.Unlock()
		fn(val, err)
		return
	}
	v.waiters = append(v.waiters, fn)
	v.mu.Unlock()
}

// Map derives a Value by applying fn to a successful outcome. On a completed
// input it runs synchronously; failure and cancellation short-circuit fn.
func Map[T, U any](in *Value[T], fn func(T) (U, error)) *Value[U] {
	if val, err, ok := in.Peek(); ok {
		if err != nil {
			return Err[U](err)
		}
		u, uerr := fn(val)
		if uerr != nil {
			return Err[U](uerr)
		}
		return Of(u)
	}
	out := Pending[U]()
	in.Subscribe(func(val T, err error) {
		if err != nil {
			out.Fail(err)
			return
		}
		u, uerr := fn(val)
		if uerr != nil {
			out.Fail(uerr)
			return
		}
		out.Complete(u)
	})
	return out
}

// FlatMap derives a Value by chaining fn's own Value after a successful
// outcome. Failure and cancellation short-circuit fn.
func FlatMap[T, U any](in *Value[T], fn func(T) *Value[U]) *Value[U] {
	if val, err, ok := in.Peek(); ok {
		if err != nil {
			return Err[U](err)
		}
		return fn(val)
	}
	out := Pending[U]()
	in.Subscribe(func(val T, err error) {
		if err != nil {
			out.Fail(err)
			return
		}
		fn(val).Subscribe(func(u U, uerr error) {
			if uerr != nil {
				out.Fail(uerr)
				return
			}
			out.Complete(u)
		})
	})
	return out
}

// Join waits for every input and collects successes. The first error wins;
// remaining outcomes are still awaited so no completion is lost.
func Join[T any](values []*Value[T]) *Value[[]T] {
	if len(values) == 0 {
		return Of([]T(nil))
	}
	out := Pending[[]T]()
	results := make([]T, len(values))
	var mu sync.Mutex
	var firstErr error
	remaining := len(values)
	for i, v := range values {
		i, v := i, v
		v.Subscribe(func(val T, err error) {
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			results[i] = val
			remaining--
			last := remaining == 0
			ferr := firstErr
			mu.Unlock()
			if !last {
				return
			}
			if ferr != nil {
				out.Fail(ferr)
			} else {
				out.Complete(results)
			}
		})
	}
	return out
}
