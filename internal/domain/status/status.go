// Package status defines the lifecycle of an outbound chat request and
// the error severity levels that drive retry decisions.
package status

import "errors"

// RequestStatus represents the lifecycle state of one send-message request.
type RequestStatus string

const (
	// Non-terminal states
	StatusIdle        RequestStatus = "idle"        // Created, nothing dispatched yet
	StatusDispatching RequestStatus = "dispatching" // Context assembled, call being issued
	StatusCoalesced   RequestStatus = "coalesced"   // Attached to an identical in-flight call
	StatusRetrying    RequestStatus = "retrying"    // Executing under the retry policy
	StatusStreaming   RequestStatus = "streaming"   // Response chunks being delivered

	// Terminal states (no further transitions allowed)
	StatusCompleted RequestStatus = "completed" // Full response delivered
	StatusFailed    RequestStatus = "failed"    // Retries exhausted or request rejected
	StatusStopped   RequestStatus = "stopped"   // Caller cancelled mid-stream; partial kept
)

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// IsTerminal returns true if the status is a terminal state.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// IsSettled returns true for terminal states that hand a message off to
// persistence. A stopped stream commits whatever was delivered, so it
// settles the same way a completed one does.
func (s RequestStatus) IsSettled() bool {
	return s == StatusCompleted || s == StatusStopped
}

// String returns the string representation of the status.
func (s RequestStatus) String() string {
	return string(s)
}

// ValidTransitions defines allowed status transitions.
var ValidTransitions = map[RequestStatus][]RequestStatus{
	StatusIdle:        {StatusDispatching},
	StatusDispatching: {StatusCoalesced, StatusRetrying, StatusStreaming, StatusFailed},
	StatusCoalesced:   {StatusStreaming, StatusFailed},
	StatusRetrying:    {StatusStreaming, StatusFailed},
	StatusStreaming:   {StatusCompleted, StatusStopped},
	// Terminal states have no valid transitions
	StatusCompleted: {},
	StatusFailed:    {},
	StatusStopped:   {},
}

// CanTransitionTo checks if a transition from the current status to the
// target status is valid.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	validTargets, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target status and returns an
// error if the transition is invalid.
func (s RequestStatus) TransitionTo(target RequestStatus) (RequestStatus, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}

// ErrorSeverity indicates how an error should be handled.
type ErrorSeverity string

const (
	ErrorSeverityRetryable ErrorSeverity = "retryable" // Retry with backoff
	ErrorSeverityFatal     ErrorSeverity = "fatal"     // Surface immediately, no retry
	ErrorSeverityAbsorbed  ErrorSeverity = "absorbed"  // Degrade locally, never propagate
)

// String returns the string representation of the error severity.
func (e ErrorSeverity) String() string {
	return string(e)
}

// IsRetryable returns true if the error can be retried.
func (e ErrorSeverity) IsRetryable() bool {
	return e == ErrorSeverityRetryable
}
