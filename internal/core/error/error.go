package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// OracleErrorMessage describes a failed language model call.
	OracleErrorMessage = "language model call failed"
	// OracleTimeoutMessage describes a language model call that exceeded its deadline.
	OracleTimeoutMessage = "language model call timed out"
	// StateStoreErrorMessage describes a failed workflow state update.
	StateStoreErrorMessage = "conversation state could not be saved"
	// BusyMessage describes a rejected concurrent turn.
	BusyMessage = "conversation is busy"
)

// Kind classifies an error by the turn phase that produced it.
type Kind string

const (
	KindUnknown        Kind = ""
	KindClassification Kind = "classification"
	KindReply          Kind = "reply"
	KindFollowUp       Kind = "follow_up"
	KindStateStore     Kind = "state_store"
	KindValidation     Kind = "validation"
	KindConfig         Kind = "config"
)

var (
	// ErrEmptyReply is returned when the oracle answers a reply request with no text.
	ErrEmptyReply = errors.New("oracle returned an empty reply")
	// ErrReplyFailed is returned when no reply could be produced for a turn.
	ErrReplyFailed = errors.New("reply generation failed")
	// ErrStateStore is returned when the workflow state could not be updated.
	ErrStateStore = errors.New("workflow state update failed")
	// ErrConversationBusy is returned when a turn is already running for a conversation.
	ErrConversationBusy = errors.New("conversation has a turn in progress")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
	Kind    Kind
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WithKind tags the error with the phase that produced it.
func (e *AppError) WithKind(k Kind) *AppError {
	e.Kind = k
	return e
}

// IsKind reports whether any AppError in the chain carries kind k.
func IsKind(err error, k Kind) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) {
			if ae.Kind == k {
				return true
			}
			err = ae.Err
			continue
		}
		return false
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 500 when none is set.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe, user-facing message carried by err.
func MessageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return SystemErrorMessage
}
