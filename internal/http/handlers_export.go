package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/report"
	"payboard/internal/webutil"
)

// handleExport sends the payout report of every author as a download. The
// table's search, range and page state does not apply. On failure no file
// is sent, only an error notification.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) error {
	format, err := report.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		return webutil.ErrNotFound("Unknown export format")
	}
	sess, err := s.session(r)
	if err != nil {
		return err
	}

	rep := report.New(sess.Stats(s.settings.Current()))
	var buf bytes.Buffer
	err = report.ExportWith(&buf, format, rep, s.reportOpts)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogExport(r.Context(), string(format), len(rep.Rows), err)
	if err != nil {
		webutil.RespondWithNotification(w, http.StatusInternalServerError, "error",
			fmt.Sprintf("Failed to export %s", strings.ToUpper(string(format))))
		return nil
	}

	h := w.Header()
	h.Set(webutil.HeaderContentType, report.ContentType(format))
	h.Set(webutil.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.Filename(format)))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	return nil
}

type sheetsExportResponse struct {
	Notification webutil.Notification `json:"notification"`
	Queued       bool                 `json:"queued"`
	Ref          string               `json:"ref,omitempty"`
	Rows         int                  `json:"rows"`
}

// handleExportSheets appends the report to the spreadsheet, or queues the
// export when a broker is configured.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	if !s.exports.Enabled() {
		webutil.RespondWithNotification(w, http.StatusServiceUnavailable, "error", "Google Sheets export is not configured")
		return nil
	}

	res, err := s.exports.RequestSheetsExport(r.Context(), sess.Filter(), sess.Stats(s.settings.Current()))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Sheets export failed",
			log.FieldOperation, log.OpExport,
			log.FieldExportFormat, "sheets",
			log.FieldError, err.Error())
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrSheetsDisabled) {
			status = http.StatusServiceUnavailable
		}
		webutil.RespondWithNotification(w, status, "error", "Failed to export to Google Sheets")
		return nil
	}

	resp := sheetsExportResponse{
		Notification: webutil.Notification{Type: "success", Message: "Successfully exported to Google Sheets"},
		Queued:       res.Queued,
		Ref:          res.Ref,
		Rows:         res.Rows,
	}
	status := http.StatusOK
	if res.Queued {
		status = http.StatusAccepted
		resp.Notification.Message = "Export to Google Sheets queued"
	}
	webutil.RespondWithJSON(w, status, resp)
	return nil
}
