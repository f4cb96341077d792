package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"classfees/internal/core"
	"classfees/internal/docstore"
	"classfees/internal/log"
)

// Error kinds reported to clients.
const (
	kindValidation    = "validation"
	kindAuthorization = "authorization"
	kindStore         = "store"
	kindTimeout       = "timeout"
	kindRequest       = "request"
	kindInternal      = "internal"
)

const timeoutHint = "the store did not answer in time; check store credentials, access rules and connectivity"

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
	Field  string `json:"field,omitempty"`
	Hint   string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps an error to its HTTP status and body.
func classify(err error) (int, ErrorBody) {
	var verr *core.ValidationError
	var serr *docstore.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorBody{Error: verr.Error(), Kind: kindValidation, Field: verr.Field}
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorBody{Error: err.Error(), Kind: kindAuthorization}
	case errors.Is(err, core.ErrTimeout):
		return http.StatusGatewayTimeout, ErrorBody{Error: err.Error(), Kind: kindTimeout, Hint: timeoutHint}
	case errors.As(err, &serr):
		return storeStatus(serr.Reason), ErrorBody{
			Error:  serr.Error(),
			Kind:   kindStore,
			Reason: string(serr.Reason),
			Hint:   storeHint(serr.Reason),
		}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Kind: kindRequest}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: err.Error(), Kind: kindInternal}
	}
}

func storeStatus(reason docstore.Reason) int {
	switch reason {
	case docstore.ReasonPermissionDenied:
		return http.StatusForbidden
	case docstore.ReasonUnavailable:
		return http.StatusServiceUnavailable
	case docstore.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func storeHint(reason docstore.Reason) string {
	switch reason {
	case docstore.ReasonPermissionDenied:
		return "the store refused access; check its credentials and access rules"
	case docstore.ReasonUnavailable:
		return "the store is unreachable; check connectivity and try again"
	case docstore.ReasonNotFound:
		return "the record no longer exists; reload and try again"
	case docstore.ReasonInvalidArgument:
		return "the store rejected the request"
	default:
		return ""
	}
}

// writeError logs err at a level matching its status and writes the JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	logger := log.FromContext(r.Context())
	args := []any{
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldStatusCode, status,
		log.FieldErrorType, body.Kind,
		log.FieldError, err.Error(),
	}
	if body.Reason != "" {
		args = append(args, log.FieldReason, body.Reason)
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", args...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", args...)
	}
	writeJSON(w, status, body)
}
