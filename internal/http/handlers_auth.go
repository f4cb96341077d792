package http

import (
	"net/http"
	"time"

	"classfees/internal/log"
)

type tokenRequest struct {
	Passphrase string `json:"passphrase"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleIssueToken exchanges the operator passphrase for a bearer token.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if s.auth == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorBody{Error: "operator auth not configured", Kind: kindAuthorization})
		return
	}
	token, expires, err := s.auth.Issue(req.Passphrase)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Issued operator token",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		"expires_at", expires.Format(time.RFC3339))
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires})
}
