// Package result provides the uniform outcome type returned by every core
// operation. Business-rule failures travel as Failure values with a fixed
// kind, never as errors, so callers branch without error unwrapping;
// infrastructure errors stay on the error channel and surface here only as
// KindStoreUnavailable.
package result

// Kind identifies the failure category of an operation outcome.
type Kind string

const (
	KindNone               Kind = ""
	KindDuplicateEmail     Kind = "duplicate_email"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUserNotFound       Kind = "user_not_found"
	KindNotFound           Kind = "not_found"
	KindDuplicateResource  Kind = "duplicate_resource"
	KindTokenMalformed     Kind = "token_malformed"
	KindTokenInvalid       Kind = "token_invalid"
	KindTokenExpired       Kind = "token_expired"
	KindUnauthorized       Kind = "unauthorized"
	KindStoreUnavailable   Kind = "store_unavailable"
)

// Result is a two-variant outcome: Success carrying a value, or Failure
// carrying a kind and a user-facing message.
type Result[T any] struct {
	ok      bool
	value   T
	kind    Kind
	message string
}

// Success wraps a value in a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{ok: true, value: v}
}

// Failure builds a failed Result with the given kind and message.
func Failure[T any](kind Kind, message string) Result[T] {
	return Result[T]{kind: kind, message: message}
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.ok }

// Value returns the success value; zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Kind returns the failure kind; KindNone on success.
func (r Result[T]) Kind() Kind { return r.kind }

// Message returns the user-facing failure message; empty on success.
func (r Result[T]) Message() string { return r.message }
