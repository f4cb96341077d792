package memory

import (
	"context"
	"testing"

	"classfees/internal/sheets"
)

func TestLedgerUpsertReplacesById(t *testing.T) {
	l := New()
	ctx := context.Background()

	if err := l.UpsertPayment(ctx, sheets.LedgerRow{PaymentID: "p1", Amount: 10}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := l.UpsertPayment(ctx, sheets.LedgerRow{PaymentID: "p2", Amount: 20}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := l.UpsertPayment(ctx, sheets.LedgerRow{PaymentID: "p1", Amount: 15}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows := l.Rows()
	if len(rows) != 2 || rows[0].PaymentID != "p1" || rows[0].Amount != 15 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestLedgerDelete(t *testing.T) {
	l := New()
	ctx := context.Background()
	_ = l.UpsertPayment(ctx, sheets.LedgerRow{PaymentID: "p1"})
	_ = l.UpsertPayment(ctx, sheets.LedgerRow{PaymentID: "p2"})

	if err := l.DeletePayment(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := l.DeletePayment(ctx, "missing"); err != nil {
		t.Fatalf("missing id should be ignored: %v", err)
	}
	ids, _ := l.PaymentIDs(ctx)
	if len(ids) != 1 || ids[0] != "p2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
