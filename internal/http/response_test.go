package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"classfees/internal/core"
	"classfees/internal/docstore"
)

func TestClassify(t *testing.T) {
	storeErr := func(reason docstore.Reason) error {
		return fmt.Errorf("list students: %w", docstore.Fail("fetch", "students", reason, errors.New("boom")))
	}
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantReason string
		wantField  string
	}{
		{"validation", &core.ValidationError{Field: "email", Message: "is required"}, 422, kindValidation, "", "email"},
		{"unauthorized", fmt.Errorf("issue: %w", core.ErrUnauthorized), 401, kindAuthorization, "", ""},
		{"timeout", fmt.Errorf("register: %w", core.ErrTimeout), 504, kindTimeout, "", ""},
		{"permission denied", storeErr(docstore.ReasonPermissionDenied), 403, kindStore, "permission_denied", ""},
		{"unavailable", storeErr(docstore.ReasonUnavailable), 503, kindStore, "unavailable", ""},
		{"not found", storeErr(docstore.ReasonNotFound), 404, kindStore, "not_found", ""},
		{"unknown store", storeErr(docstore.ReasonUnknown), 502, kindStore, "unknown", ""},
		{"invalid argument", storeErr(docstore.ReasonInvalidArgument), 502, kindStore, "invalid_argument", ""},
		{"bad request", fmt.Errorf("%w: empty body", errBadRequest), 400, kindRequest, "", ""},
		{"other", errors.New("template exploded"), 500, kindInternal, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status=%d, want %d", status, tt.wantStatus)
			}
			if body.Kind != tt.wantKind || body.Reason != tt.wantReason || body.Field != tt.wantField {
				t.Errorf("body=%+v", body)
			}
			if body.Error == "" {
				t.Error("message must not be empty")
			}
		})
	}
}

func TestWriteErrorKeepsStoreMessage(t *testing.T) {
	err := docstore.Fail("insert", "students", docstore.ReasonPermissionDenied, errors.New("missing or insufficient permissions"))
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/api/students", nil), err)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != err.Error() {
		t.Errorf("error=%q, want the store message verbatim", body.Error)
	}
	if body.Hint == "" {
		t.Error("expected a categorical hint")
	}
}
