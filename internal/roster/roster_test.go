package roster

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"classfees/internal/core"
	"classfees/internal/log"
)

type fakeRegistrar struct {
	got []core.StudentInput
}

func (f *fakeRegistrar) Register(_ context.Context, in core.StudentInput) (core.Student, error) {
	if err := in.Validate(); err != nil {
		return core.Student{}, err
	}
	f.got = append(f.got, in)
	return core.Student{ID: in.Email, FirstName: in.FirstName, LastName: in.LastName}, nil
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", axis, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf
}

func TestImportStudents(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Nombre", "Apellido", "Email", "Curso", "Ignored"},
		{"Ana", "Rojas", "ana@example.com", "B1", "x"},
		{},
		{"Luis", "", "luis@example.com"},
		{" María ", "Soto", "maria@example.com"},
	})
	reg := &fakeRegistrar{}

	res, err := ImportStudents(context.Background(), buf, reg, log.Discard())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 2 {
		t.Errorf("imported=%d", res.Imported)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 4 {
		t.Fatalf("errors=%+v", res.Errors)
	}
	if reg.got[0].Course != "B1" || reg.got[1].FirstName != "María" {
		t.Errorf("unexpected inputs %+v", reg.got)
	}
}

func TestImportStudentsEnglishHeader(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Email", "First Name", "LastName", "Phone"},
		{"ana@example.com", "Ana", "Rojas", "555"},
	})
	reg := &fakeRegistrar{}
	res, err := ImportStudents(context.Background(), buf, reg, log.Discard())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || reg.got[0].Phone != "555" || reg.got[0].FirstName != "Ana" {
		t.Fatalf("res=%+v got=%+v", res, reg.got)
	}
}

func TestImportStudentsRejectsUnknownHeader(t *testing.T) {
	buf := workbook(t, [][]any{{"foo", "bar"}, {"a", "b"}})
	_, err := ImportStudents(context.Background(), buf, &fakeRegistrar{}, log.Discard())
	if !errors.Is(err, ErrNoHeader) {
		t.Fatalf("want ErrNoHeader, got %v", err)
	}
}

func TestImportStudentsRejectsNonWorkbook(t *testing.T) {
	_, err := ImportStudents(context.Background(), bytes.NewBufferString("not a zip"), &fakeRegistrar{}, log.Discard())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExportLedger(t *testing.T) {
	students := []core.Student{{ID: "s1", FirstName: "Ana", LastName: "Rojas", Email: "ana@example.com"}}
	payments := []core.Payment{
		{ID: "p2", StudentID: "s1", Date: "2025-04-01", Amount: core.AmountOf(30), Months: []string{"April"}},
		{ID: "p1", StudentID: "s1", Date: "2025-03-10", Amount: core.AmountOf(50), Months: []string{"March"}},
		{ID: "p0", StudentID: "gone", Date: "", Amount: core.ParseAmount(nil)},
	}

	var buf bytes.Buffer
	if err := ExportLedger(&buf, students, payments, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	balance, _ := f.GetCellValue(StudentsSheet, "D2")
	if balance != "80" {
		t.Errorf("balance=%q", balance)
	}
	count, _ := f.GetCellValue(StudentsSheet, "E2")
	if count != "2" {
		t.Errorf("payments=%q", count)
	}

	rows, err := f.GetRows(PaymentsSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("want header, three payments and total, got %d rows", len(rows))
	}
	if rows[3][0] != core.Placeholder || rows[3][1] != "gone (deleted)" {
		t.Errorf("orphan row=%v", rows[3])
	}
	if rows[4][3] != "80" {
		t.Errorf("total=%v", rows[4])
	}
}
