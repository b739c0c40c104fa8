package schemas

import (
	"errors"
	"fmt"
	"time"
)

// Typed errors let callers classify failures with errors.As instead of
// string matching. Underlying driver errors are preserved as the cause,
// never swallowed.

// ErrNoPrompt is returned when a request carries neither an inline prompt
// nor a prompt file.
var ErrNoPrompt = errors.New("either a prompt or a prompt file must be provided")

// AuthenticationError means the chat interface never became available before
// the authentication sub-deadline. User-actionable: manual login is needed.
type AuthenticationError struct {
	Msg string
	Err error
}

func (e *AuthenticationError) Error() string { return e.Msg }
func (e *AuthenticationError) Unwrap() error { return e.Err }

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(msg string, cause error) *AuthenticationError {
	return &AuthenticationError{Msg: msg, Err: cause}
}

// ProviderError means a specific UI step could not complete: no selector
// candidate resolved, or every extraction strategy failed.
type ProviderError struct {
	Step string
	Msg  string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s: %s", e.Step, e.Msg)
	}
	return e.Msg
}
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError creates a new ProviderError for the named UI step.
func NewProviderError(step, msg string, cause error) *ProviderError {
	return &ProviderError{Step: step, Msg: msg, Err: cause}
}

// TimeoutError means a bounded wait elapsed without any completion signal.
type TimeoutError struct {
	Op     string
	Budget time.Duration
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Op, e.Budget)
}
func (e *TimeoutError) Unwrap() error { return e.Err }

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(op string, budget time.Duration, cause error) *TimeoutError {
	return &TimeoutError{Op: op, Budget: budget, Err: cause}
}

// NotFoundError is raised by the selector resolver when every candidate for a
// logical target was exhausted.
type NotFoundError struct {
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no selector candidate resolved for target %q", e.Target)
}

// NewNotFoundError creates a new NotFoundError for a logical target.
func NewNotFoundError(target string) *NotFoundError {
	return &NotFoundError{Target: target}
}
