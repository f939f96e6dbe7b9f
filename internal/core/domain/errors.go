package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrConversion        = errors.New("image conversion error")
	ErrNetwork           = errors.New("network error")
	ErrServer            = errors.New("server error")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrBusy              = errors.New("operation already in progress")
	ErrTemporary         = errors.New("temporary failure")
	ErrSuperseded        = errors.New("superseded by a newer lifecycle")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ServerMessager is implemented by errors that carry a message written by the backend.
type ServerMessager interface {
	ServerMessage() string
}

// ExtractionError reports a terminal failed status together with the backend's messages.
type ExtractionError struct {
	DocumentID string
	Messages   []string
}

func (e *ExtractionError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("document %s: extraction failed", e.DocumentID)
	}
	return fmt.Sprintf("document %s: extraction failed: %s", e.DocumentID, strings.Join(e.Messages, "; "))
}

func (e *ExtractionError) Unwrap() error { return ErrExtractionFailed }

// LocalError is a failure detected on the client before any request is sent.
type LocalError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *LocalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LocalError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func Invalidf(format string, args ...any) error {
	return &LocalError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func ConversionFailed(message string, cause error) error {
	return &LocalError{Kind: ErrConversion, Message: message, Cause: cause}
}

// UserMessage returns the text to show for err. Backend messages are returned verbatim,
// everything else falls back to a generic sentence for the error kind.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var extraction *ExtractionError
	if errors.As(err, &extraction) && len(extraction.Messages) > 0 {
		return strings.Join(extraction.Messages, "\n")
	}

	var local *LocalError
	if errors.As(err, &local) {
		return local.Message
	}

	var messager ServerMessager
	if errors.As(err, &messager) {
		if msg := strings.TrimSpace(messager.ServerMessage()); msg != "" {
			return msg
		}
	}

	switch {
	case IsKind(err, ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case IsKind(err, ErrNotFound):
		return "Document not found."
	case IsKind(err, ErrNetwork), IsKind(err, ErrTemporary):
		return "Could not reach the server. Please try again."
	case IsKind(err, ErrExtractionFailed):
		return "Extraction failed. Please start a new document."
	case IsKind(err, ErrBusy):
		return "Another operation is still running."
	default:
		return "Something went wrong. Please try again."
	}
}
