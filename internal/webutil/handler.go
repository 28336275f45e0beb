package webutil

import (
	"errors"
	"log/slog"
	"net/http"

	"payboard/internal/log"
)

// AppHandler is a handler that reports failure by returning an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts h. An *HTTPError answers with its code and message; any
// other error answers 500 with a generic message.
func MakeHandler(h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		logger := log.FromContext(r.Context())

		var httpErr *HTTPError
		code, message := http.StatusInternalServerError, msgInternalServer
		if errors.As(err, &httpErr) {
			code, message = httpErr.Code, httpErr.Message
		}

		level := slog.LevelWarn
		if code >= 500 {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "Request failed",
			log.FieldStatusCode, code,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())

		if w.Header().Get(HeaderContentType) != "" {
			logger.WarnContext(r.Context(), "Handler returned error after writing response",
				log.FieldPath, r.URL.Path)
			return
		}
		RespondWithError(w, code, message)
	}
}
