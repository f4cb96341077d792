package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"classfees/internal/core"
	"classfees/internal/log"
	"classfees/internal/roster"
)

const (
	maxRosterBytes = 10 << 20
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// handleImportStudents registers the rows of an uploaded roster workbook
// sent as the multipart field "file".
func (s *Server) handleImportStudents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRosterBytes)
	if err := r.ParseMultipartForm(maxRosterBytes); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "file", Message: "attach the roster workbook"})
		return
	}
	defer file.Close()

	result, err := roster.ImportStudents(r.Context(), file, s.students,
		log.FromContext(r.Context()).With("filename", header.Filename))
	if err != nil {
		switch {
		case r.Context().Err() != nil:
			writeError(w, r, err)
			return
		case errors.Is(err, roster.ErrNoHeader):
			err = &core.ValidationError{Field: "file", Message: err.Error()}
		default:
			err = &core.ValidationError{Field: "file", Message: "not a readable xlsx workbook: " + err.Error()}
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExportLedger streams the ledger workbook. It is built in memory
// first so a failure can still be reported as JSON.
func (s *Server) handleExportLedger(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := s.snapshots.Now()
	var buf bytes.Buffer
	if err := roster.ExportLedger(&buf, snap.Students, snap.Payments, now); err != nil {
		writeError(w, r, fmt.Errorf("export ledger: %w", err))
		return
	}
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger-%s.xlsx"`, now.Format("2006-01-02")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if snap.Stale {
		w.Header().Set("X-Data-Stale", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
