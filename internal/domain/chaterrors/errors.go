// Package chaterrors defines the error taxonomy for the conversation
// engine. Every failure that crosses a component boundary is wrapped in a
// ChatError carrying a severity, which the retry executor and the HTTP
// layer use to decide whether to retry, surface, or absorb it.
package chaterrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tutorchat/internal/domain/status"
)

// Kind categorizes a failure.
type Kind string

const (
	// KindTransientNetwork covers timeouts, connection failures and 5xx
	// responses. Retried by the retry executor.
	KindTransientNetwork Kind = "TRANSIENT_NETWORK"

	// KindRequestRejected covers 4xx responses and malformed payloads.
	// Surfaced immediately, never retried.
	KindRequestRejected Kind = "REQUEST_REJECTED"

	// KindContextUnavailable means the history store failed while the
	// context was being assembled. Absorbed: the send proceeds with an
	// empty context.
	KindContextUnavailable Kind = "CONTEXT_UNAVAILABLE"

	// KindSummaryUnavailable means summary generation failed. Absorbed:
	// a fixed placeholder is attached instead.
	KindSummaryUnavailable Kind = "SUMMARY_UNAVAILABLE"
)

// ChatError is an error with engine-level classification.
type ChatError struct {
	Kind     Kind
	Severity status.ErrorSeverity
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *ChatError) Unwrap() error {
	return e.Err
}

// TransientNetwork wraps err as a retryable network failure.
func TransientNetwork(message string, err error) *ChatError {
	return &ChatError{
		Kind:     KindTransientNetwork,
		Severity: status.ErrorSeverityRetryable,
		Message:  message,
		Err:      err,
	}
}

// RequestRejected wraps err as a non-retryable rejection.
func RequestRejected(message string, err error) *ChatError {
	return &ChatError{
		Kind:     KindRequestRejected,
		Severity: status.ErrorSeverityFatal,
		Message:  message,
		Err:      err,
	}
}

// ContextUnavailable wraps a history-store failure during context assembly.
func ContextUnavailable(message string, err error) *ChatError {
	return &ChatError{
		Kind:     KindContextUnavailable,
		Severity: status.ErrorSeverityAbsorbed,
		Message:  message,
		Err:      err,
	}
}

// SummaryUnavailable wraps a summary-generation failure.
func SummaryUnavailable(message string, err error) *ChatError {
	return &ChatError{
		Kind:     KindSummaryUnavailable,
		Severity: status.ErrorSeverityAbsorbed,
		Message:  message,
		Err:      err,
	}
}

// FromHTTPStatus classifies a non-2xx response from a remote collaborator.
// 5xx and 408/429 count as transient, everything else in the 4xx range is
// a rejection the caller has to fix.
func FromHTTPStatus(code int, body string) *ChatError {
	message := fmt.Sprintf("remote returned %d", code)
	if body != "" {
		message = fmt.Sprintf("remote returned %d: %s", code, body)
	}
	if code >= http.StatusInternalServerError ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests {
		return TransientNetwork(message, nil)
	}
	return RequestRejected(message, nil)
}

// SeverityOf returns the severity of err. Context deadline errors are
// retryable (per-attempt timeouts look like transient network failures),
// context cancellation is fatal (the caller walked away), and anything
// unclassified defaults to retryable so plain transport errors get the
// retry policy applied.
func SeverityOf(err error) status.ErrorSeverity {
	if err == nil {
		return status.ErrorSeverityAbsorbed
	}
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Severity
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.ErrorSeverityRetryable
	}
	if errors.Is(err, context.Canceled) {
		return status.ErrorSeverityFatal
	}
	return status.ErrorSeverityRetryable
}

// IsKind reports whether err is a ChatError of the given kind.
func IsKind(err error, kind Kind) bool {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Kind == kind
	}
	return false
}
