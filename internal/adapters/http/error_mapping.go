package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

var errForbidden = errors.New("forbidden")

// handlerError carries the message written into the {"error": ...} body.
type handlerError struct {
	kind    error
	message string
}

func (e *handlerError) Error() string { return e.message }

func (e *handlerError) Unwrap() error { return e.kind }

func apiError(kind error, format string, args ...any) error {
	return &handlerError{kind: kind, message: fmt.Sprintf(format, args...)}
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, errForbidden):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := "internal server error"
	var herr *handlerError
	if errors.As(err, &herr) {
		message = herr.message
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
