package http

import (
	"bytes"
	"html/template"
	"net/http"

	"classfees/internal/log"
)

// render executes name into a buffer so a template failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			log.FieldError, err.Error())
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderError shows a store or service failure as a plain page with the
// status the API would use.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	log.FromContext(r.Context()).WarnContext(r.Context(), "Page failed",
		log.FieldPath, r.URL.Path,
		log.FieldStatusCode, status,
		log.FieldError, err.Error())
	msg := body.Error
	if body.Hint != "" {
		msg += " (" + body.Hint + ")"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<!doctype html><title>Error</title><p class="error">` + template.HTMLEscapeString(msg) + `</p><p><a href="/">Volver</a></p>`))
}
