package model

import (
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type outcomeState int

const (
	stateOK outcomeState = iota + 1
	stateAbsent
	stateFailed
)

// Failure describes a classified platform failure. Retryable failures may be
// re-attempted by the caller without changing request semantics.
type Failure struct {
	Kind      types.ErrorKind
	Err       error
	Retryable bool
}

// Outcome is the uniform result of a platform operation. Exactly one of the
// three states is populated: OK carries a value, Absent signals that the
// queried subject legitimately does not exist (lookup-shaped operations
// only), and Failed carries a classified failure.
type Outcome[T any] struct {
	state   outcomeState
	value   T
	failure *Failure
}

// OK returns a successful outcome carrying v
func OK[T any](v T) Outcome[T] {
	return Outcome[T]{state: stateOK, value: v}
}

// Absent returns an outcome signaling expected absence of the subject
func Absent[T any]() Outcome[T] {
	return Outcome[T]{state: stateAbsent}
}

// Failed returns a failed outcome with the given kind
func Failed[T any](kind types.ErrorKind, err error, retryable bool) Outcome[T] {
	if err == nil {
		err = goerr.New("operation failed", goerr.V("kind", kind))
	}
	return Outcome[T]{state: stateFailed, failure: &Failure{
		Kind:      kind,
		Err:       err,
		Retryable: retryable,
	}}
}

// FailedWith re-wraps an existing failure into an outcome of another type
func FailedWith[T any](f *Failure) Outcome[T] {
	if f == nil {
		return Failed[T](types.ErrKindUpstreamError, nil, false)
	}
	return Outcome[T]{state: stateFailed, failure: f}
}

func (x Outcome[T]) IsOK() bool     { return x.state == stateOK }
func (x Outcome[T]) IsAbsent() bool { return x.state == stateAbsent }
func (x Outcome[T]) IsFailed() bool { return x.state == stateFailed }

// Value returns the carried value and whether the outcome is OK
func (x Outcome[T]) Value() (T, bool) {
	return x.value, x.state == stateOK
}

// Unwrap returns the carried value, valid only when IsOK
func (x Outcome[T]) Unwrap() T {
	return x.value
}

// Failure returns the failure detail, or nil when not failed
func (x Outcome[T]) Failure() *Failure {
	if x.state != stateFailed {
		return nil
	}
	return x.failure
}

// Kind returns the failure kind, or empty string when not failed
func (x Outcome[T]) Kind() types.ErrorKind {
	if x.state != stateFailed {
		return ""
	}
	return x.failure.Kind
}

// Retryable reports whether the failure may be retried
func (x Outcome[T]) Retryable() bool {
	return x.state == stateFailed && x.failure.Retryable
}

// Err returns the underlying error, or nil when not failed
func (x Outcome[T]) Err() error {
	if x.state != stateFailed {
		return nil
	}
	return x.failure.Err
}
