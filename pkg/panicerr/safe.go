// Package panicerr turns panics into errors so one misbehaving adapter
// cannot take the process down.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Safe wraps a function that returns an error, catching any panics and returning them as an error.
func Safe(fn func() error) func() error {
	return func() error {
		_, err := Call(func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	}
}

// SafeContext wraps a function that takes a context and returns an error.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// Call runs fn and returns its results, or the zero value and the
// recovered panic as an error.
func Call[T any](fn func() (T, error)) (T, error) {
	var (
		catcher panics.Catcher
		v       T
		err     error
	)
	catcher.Try(func() {
		v, err = fn()
	})
	if r := catcher.Recovered(); r != nil {
		var zero T
		return zero, r.AsError()
	}
	return v, err
}
