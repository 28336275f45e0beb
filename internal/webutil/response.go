package webutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Notification is a transient message shown by the dashboard.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}
	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithNotification answers with a notification payload and no other
// body.
func RespondWithNotification(w http.ResponseWriter, code int, kind, message string) {
	RespondWithJSON(w, code, map[string]Notification{
		"notification": {Type: kind, Message: message},
	})
}
