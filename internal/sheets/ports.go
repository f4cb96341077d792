package sheets

import (
	"context"
	"strings"

	"classfees/internal/core"
)

// LedgerRow is one payment as mirrored to the spreadsheet.
type LedgerRow struct {
	PaymentID   string
	Date        string
	StudentID   string
	StudentName string
	Months      []string
	Amount      float64
}

// Header is the first row of the ledger sheet; column A is the payment id.
var Header = []any{"id", "date", "studentId", "student", "months", "amount"}

// RowFromPayment builds the mirrored row. A blank name falls back to the
// raw student id.
func RowFromPayment(p core.Payment, studentName string) LedgerRow {
	if strings.TrimSpace(studentName) == "" {
		studentName = p.StudentID
	}
	return LedgerRow{
		PaymentID:   p.ID,
		Date:        p.Date,
		StudentID:   p.StudentID,
		StudentName: studentName,
		Months:      append([]string(nil), p.Months...),
		Amount:      p.Amount.Effective(),
	}
}

// Values renders the row in column order.
func (r LedgerRow) Values() []any {
	return []any{r.PaymentID, r.Date, r.StudentID, r.StudentName, strings.Join(r.Months, ", "), r.Amount}
}

// LedgerWriter is the outbound port of the ledger mirror.
type LedgerWriter interface {
	// UpsertPayment replaces the row with the same payment id, or appends one.
	UpsertPayment(ctx context.Context, row LedgerRow) error
	// DeletePayment clears the payment's row; a missing id is not an error.
	DeletePayment(ctx context.Context, paymentID string) error
	// PaymentIDs lists the ids currently mirrored.
	PaymentIDs(ctx context.Context) ([]string, error)
}
