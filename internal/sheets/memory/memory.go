// Package memory is an in-process sheets.LedgerWriter for development and
// tests.
package memory

import (
	"context"
	"sync"

	"classfees/internal/sheets"
)

var _ sheets.LedgerWriter = (*Ledger)(nil)

type Ledger struct {
	mu   sync.Mutex
	rows []sheets.LedgerRow
}

func New() *Ledger {
	return &Ledger{}
}

func (l *Ledger) UpsertPayment(_ context.Context, row sheets.LedgerRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		if l.rows[i].PaymentID == row.PaymentID {
			l.rows[i] = row
			return nil
		}
	}
	l.rows = append(l.rows, row)
	return nil
}

func (l *Ledger) DeletePayment(_ context.Context, paymentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		if l.rows[i].PaymentID == paymentID {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (l *Ledger) PaymentIDs(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, len(l.rows))
	for i, r := range l.rows {
		ids[i] = r.PaymentID
	}
	return ids, nil
}

// Rows returns a copy of the mirrored rows in insertion order.
func (l *Ledger) Rows() []sheets.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.LedgerRow(nil), l.rows...)
}
