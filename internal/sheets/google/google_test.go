package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"classfees/internal/log"
	ports "classfees/internal/sheets"
)

// fakeSheet serves the handful of values endpoints the client uses over an
// in-memory grid.
type fakeSheet struct {
	mu   sync.Mutex
	rows [][]string
}

var rowRange = regexp.MustCompile(`!A(\d+):F\d+$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case r.Method == http.MethodGet:
		values := make([][]any, len(f.rows))
		for i, row := range f.rows {
			values[i] = []any{}
			if len(row) > 0 && row[0] != "" {
				values[i] = []any{row[0]}
			}
		}
		writeJSON(w, map[string]any{"range": rng, "values": values})
	case strings.HasSuffix(rng, ":append"):
		for _, row := range decodeRows(r) {
			f.rows = append(f.rows, row)
		}
		writeJSON(w, map[string]any{})
	case strings.HasSuffix(rng, ":clear"):
		n := rowNumber(strings.TrimSuffix(rng, ":clear"))
		if n > 0 && n <= len(f.rows) {
			f.rows[n-1] = nil
		}
		writeJSON(w, map[string]any{})
	case r.Method == http.MethodPut:
		n := rowNumber(rng)
		rows := decodeRows(r)
		if n < 1 || n > len(f.rows) || len(rows) != 1 {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		f.rows[n-1] = rows[0]
		writeJSON(w, map[string]any{})
	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func (f *fakeSheet) snapshot() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.rows))
	copy(out, f.rows)
	return out
}

func rowNumber(rng string) int {
	m := rowRange.FindStringSubmatch(rng)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func decodeRows(r *http.Request) [][]string {
	var body struct {
		Values [][]any `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	out := make([][]string, len(body.Values))
	for i, row := range body.Values {
		for _, v := range row {
			out[i] = append(out[i], fmt.Sprint(v))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Pagos", log.Discard()), fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "", Credentials{JSON: "{}"}, log.Discard())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), "sheet-id", "", Credentials{}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), "sheet-id", "", Credentials{File: t.TempDir() + "/none.json"}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.UpsertPayment(context.Background(), ports.LedgerRow{PaymentID: "p1"}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestClient_UpsertAppendsWithHeader(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	row := ports.LedgerRow{PaymentID: "p1", Date: "2025-03-10", StudentID: "s1", StudentName: "Ana Rojas", Months: []string{"March", "April"}, Amount: 50}
	if err := c.UpsertPayment(ctx, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows := fake.snapshot()
	if len(rows) != 2 {
		t.Fatalf("want header plus one row, got %v", rows)
	}
	if rows[0][0] != "id" {
		t.Errorf("header not written: %v", rows[0])
	}
	want := []string{"p1", "2025-03-10", "s1", "Ana Rojas", "March, April", "50"}
	if strings.Join(rows[1], "|") != strings.Join(want, "|") {
		t.Errorf("row=%v want %v", rows[1], want)
	}
}

func TestClient_UpsertUpdatesExistingRow(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		if err := c.UpsertPayment(ctx, ports.LedgerRow{PaymentID: id, Amount: 10}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	if err := c.UpsertPayment(ctx, ports.LedgerRow{PaymentID: "p1", Amount: 99}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows := fake.snapshot()
	if len(rows) != 3 {
		t.Fatalf("update must not append: %v", rows)
	}
	if rows[1][0] != "p1" || rows[1][5] != "99" {
		t.Errorf("row not updated in place: %v", rows[1])
	}
}

func TestClient_DeleteAndPaymentIDs(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		if err := c.UpsertPayment(ctx, ports.LedgerRow{PaymentID: id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	if err := c.DeletePayment(ctx, "p2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeletePayment(ctx, "unknown"); err != nil {
		t.Fatalf("unknown id should be ignored: %v", err)
	}

	ids, err := c.PaymentIDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if strings.Join(ids, ",") != "p1,p3" {
		t.Errorf("ids=%v", ids)
	}
	if rows := fake.snapshot(); len(rows) != 4 {
		t.Errorf("delete should blank the row, not remove it: %v", rows)
	}
}

func TestFindRow(t *testing.T) {
	ids := []string{"id", "p1", "", "p2"}
	tests := map[string]int{"p1": 2, "p2": 4, "id": 0, "": 0, "p9": 0}
	for id, want := range tests {
		if got := findRow(ids, id); got != want {
			t.Errorf("findRow(%q) = %d, want %d", id, got, want)
		}
	}
}
