package http

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"classfees/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
	}{
		{"defaults", url.Values{}, 2025, 4},
		{"explicit", url.Values{"year": {"2026"}, "month": {"1"}}, 2026, 1},
		{"garbage ignored", url.Values{"year": {"abc"}, "month": {"xyz"}}, 2025, 4},
		{"month out of range", url.Values{"month": {"13"}}, 2025, 4},
		{"month zero", url.Values{"month": {"0"}}, 2025, 4},
		{"whitespace", url.Values{"year": {" 2024 "}, "month": {" 12 "}}, 2024, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMonthParams(tt.query, now)
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"firstName":"Ana","lastName":"Soto","email":"a@x"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"nombre":"Ana"}`, true},
		{"trailing", `{"firstName":"Ana"} {}`, true},
		{"not json", `firstName=Ana`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in core.StudentInput
			r := httptest.NewRequest("POST", "/api/students", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errBadRequest) {
				t.Errorf("%v should wrap errBadRequest", err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":       "hello",
		"a\x00b\x07c":     "abc",
		"line1\nline2":    "line1\nline2",
		"tab\tseparated":  "tab\tseparated",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
