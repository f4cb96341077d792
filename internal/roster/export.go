package roster

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"classfees/internal/core"
	"classfees/internal/ledger"
)

const (
	StudentsSheet = "Students"
	PaymentsSheet = "Payments"
)

// ExportLedger writes a workbook with one row per student (balance and
// covered months) and one row per payment, newest first as given.
func ExportLedger(w io.Writer, students []core.Student, payments []core.Payment, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), StudentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(PaymentsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	studentRows := [][]any{{"Name", "Email", "Course", "Balance", "Payments", "Covered months"}}
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.DisplayName()
		studentRows = append(studentRows, []any{
			s.DisplayName(),
			s.Email,
			s.Course,
			ledger.StudentBalance(payments, s.ID),
			len(ledger.PaymentsForStudent(payments, s.ID)),
			strings.Join(ledger.CoveredMonths(payments, s.ID), ", "),
		})
	}
	studentRows = append(studentRows, []any{}, []any{"Generated", now.Format(time.RFC3339)})

	paymentRows := [][]any{{"Date", "Student", "Months", "Amount"}}
	for _, p := range payments {
		name, ok := names[p.StudentID]
		if !ok {
			name = p.StudentID + " (deleted)"
		}
		paymentRows = append(paymentRows, []any{
			core.OrPlaceholder(p.Date),
			name,
			strings.Join(p.Months, ", "),
			p.Amount.Effective(),
		})
	}
	paymentRows = append(paymentRows, []any{"", "", "Total", ledger.TotalCollected(payments)})

	for sheet, rows := range map[string][][]any{StudentsSheet: studentRows, PaymentsSheet: paymentRows} {
		if err := writeRows(f, sheet, rows, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}
