package flyt

import (
	"errors"
	"fmt"
)

var errFailedWithoutCause = errors.New("flyt: failed result without cause")

// Result is either a successful value of type T or the error that prevented
// producing one. Steps that may fail on untrusted input return a Result so the
// caller decides whether the failure is fatal or retryable.
type Result[T any] struct {
	value T
	err   error
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail creates a failed Result. A nil error is replaced so the
// Result still reports failure.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = errFailedWithoutCause
	}
	return Result[T]{err: err}
}

// IsOk reports whether the Result holds a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the value and true on success, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	if r.err != nil {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the failure cause, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Unwrap returns the value and the failure cause in Go's usual form.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// ValueOr returns the value, or defaultVal if the Result failed.
func (r Result[T]) ValueOr(defaultVal T) T {
	if r.err != nil {
		return defaultVal
	}
	return r.value
}

// MustValue returns the value.
// Panics if the Result failed.
func (r Result[T]) MustValue() T {
	if r.err != nil {
		panic(fmt.Sprintf("Result.MustValue: %v", r.err))
	}
	return r.value
}

// String renders the Result for logs.
func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Fail(%v)", r.err)
	}
	return fmt.Sprintf("Ok(%v)", r.value)
}
