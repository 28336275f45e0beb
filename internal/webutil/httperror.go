// Package webutil holds the JSON response helpers and the error-returning
// handler adapter shared by every HTTP handler.
package webutil

import (
	"fmt"
	"net/http"
)

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderRetryAfter         = "Retry-After"

	ContentTypeJSONUTF8      = "application/json; charset=utf-8"
	ContentTypeTextPlainUTF8 = "text/plain; charset=utf-8"
	ContentTypeHTMLUTF8      = "text/html; charset=utf-8"
)

const (
	msgBadRequest          = "Bad Request"
	msgNotFound            = "Resource not found"
	msgInternalServer      = "Internal Server Error"
	msgUnauthorized        = "Unauthorized"
	msgConflict            = "Conflict"
	msgUnprocessableEntity = "Unprocessable Entity"
	msgServiceUnavailable  = "Service Unavailable"
)

// HTTPError carries a status code and a user-facing message. The cause is
// logged, never sent to the client.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (he *HTTPError) Error() string {
	if he.cause != nil {
		return fmt.Sprintf("%s: %v", he.Message, he.cause)
	}
	return he.Message
}

func (he *HTTPError) Unwrap() error {
	return he.cause
}

func orDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// NewHTTPErrorWrap attaches cause to a user-facing error.
func NewHTTPErrorWrap(code int, message string, cause error) *HTTPError {
	return &HTTPError{cause: cause, Code: code, Message: message}
}

func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, orDefault(message, msgBadRequest))
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusBadRequest, orDefault(message, msgBadRequest), cause)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, orDefault(message, msgNotFound))
}

func ErrUnauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, orDefault(message, msgUnauthorized))
}

func ErrConflictWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusConflict, orDefault(message, msgConflict), cause)
}

func ErrUnprocessableEntityWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusUnprocessableEntity, orDefault(message, msgUnprocessableEntity), cause)
}

func ErrServiceUnavailableWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusServiceUnavailable, orDefault(message, msgServiceUnavailable), cause)
}

// ErrInternalServerWrap hides message from the client and keeps it in the
// logged cause.
func ErrInternalServerWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusInternalServerError, msgInternalServer, fmt.Errorf("%s: %w", message, cause))
}
