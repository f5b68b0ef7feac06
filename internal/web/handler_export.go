package web

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/vbonduro/foodsurvey/internal/apperr"
	"github.com/vbonduro/foodsurvey/internal/export"
)

const msgBadFormat = "Formato de exportación no soportado"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, apperr.Validation(msgBadFormat))
		return
	}

	rows, err := s.reports.ExportRows(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(rows) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Encode fully before writing headers so a failure can still become a 500.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, rows); err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", format.ContentType())
	h.Set("Content-Disposition", `attachment; filename="`+format.Filename(s.now())+`"`)
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write export failed", "format", string(format), "error", err)
	}
}
