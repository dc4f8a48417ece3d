// Package result provides a generic success/error container used instead of
// returning bare errors across layer boundaries. A Result is immutable once
// constructed and callers must branch on the tag (or use Fold) before
// touching the payload.
package result

import "voyago-client/internal/apperrors"

// Result holds either a value of type T or an *apperrors.AppError.
type Result[T any] struct {
	value T
	err   *apperrors.AppError
	ok    bool
}

// Ok creates a successful result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err creates a failed result. A nil error is coerced to an unknown-kind
// error so a failed result can never carry a nil error.
func Err[T any](err *apperrors.AppError) Result[T] {
	if err == nil {
		err = apperrors.New(apperrors.KindUnknown, "result created with nil error")
	}
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the result holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Value returns the contained value. It is only meaningful when IsOk.
func (r Result[T]) Value() T { return r.value }

// Error returns the contained error, or nil when IsOk.
func (r Result[T]) Error() *apperrors.AppError { return r.err }

// UnwrapOr returns the value, or fallback when the result is an error.
func (r Result[T]) UnwrapOr(fallback T) T {
	if r.ok {
		return r.value
	}
	return fallback
}

// UnwrapOrElse returns the value, or the output of fn applied to the error.
func (r Result[T]) UnwrapOrElse(fn func(*apperrors.AppError) T) T {
	if r.ok {
		return r.value
	}
	return fn(r.err)
}

// Fold invokes exactly one of the two callbacks. Both are mandatory; this is
// the canonical consumption pattern and forces explicit handling of the
// error branch at every call site.
func (r Result[T]) Fold(onOk func(T), onErr func(*apperrors.AppError)) {
	if r.ok {
		onOk(r.value)
		return
	}
	onErr(r.err)
}

// Map transforms the value of a successful result; errors pass through
// unchanged. It is a package function because Go methods cannot introduce
// type parameters.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.IsErr() {
		return Err[U](r.err)
	}
	return Ok(fn(r.value))
}

// FlatMap chains result-producing operations; errors pass through unchanged.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.IsErr() {
		return Err[U](r.err)
	}
	return fn(r.value)
}

// Fold reduces a result to a single value, applying exactly one branch.
func Fold[T, U any](r Result[T], onOk func(T) U, onErr func(*apperrors.AppError) U) U {
	if r.IsOk() {
		return onOk(r.value)
	}
	return onErr(r.err)
}
