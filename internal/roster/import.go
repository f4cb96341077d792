// Package roster moves students and payments in and out of xlsx workbooks.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"classfees/internal/core"
	"classfees/internal/log"
)

// Registrar is the part of the student service the importer needs.
type Registrar interface {
	Register(ctx context.Context, in core.StudentInput) (core.Student, error)
}

// RowError reports a rejected row by its 1-based sheet row number.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// header names per field, lower case; the Spanish ones come from the first
// roster template
var columns = map[string]string{
	"firstname":     "firstName",
	"first name":    "firstName",
	"nombre":        "firstName",
	"lastname":      "lastName",
	"last name":     "lastName",
	"apellido":      "lastName",
	"email":         "email",
	"correo":        "email",
	"phone":         "phone",
	"telefono":      "phone",
	"teléfono":      "phone",
	"course":        "course",
	"curso":         "course",
	"notes":         "notes",
	"observaciones": "notes",
}

var ErrNoHeader = errors.New("roster has no recognizable header row")

// ImportStudents registers every valid row of the first sheet. Blank rows
// are skipped; rows that fail validation or registration are reported and
// do not stop the import. Store failures other than validation are also
// collected per row.
func ImportStudents(ctx context.Context, r io.Reader, reg Registrar, logger *log.Logger) (ImportResult, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentRoster)

	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close workbook", log.FieldError, err.Error())
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return ImportResult{}, errors.New("workbook does not contain any sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read rows of %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return ImportResult{}, ErrNoHeader
	}

	index := mapHeader(rows[0])
	if _, ok := index["firstName"]; !ok {
		return ImportResult{}, ErrNoHeader
	}

	result := ImportResult{Errors: []RowError{}}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			result.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		in := core.StudentInput{
			FirstName: cell(row, index, "firstName"),
			LastName:  cell(row, index, "lastName"),
			Email:     cell(row, index, "email"),
			Phone:     cell(row, index, "phone"),
			Course:    cell(row, index, "course"),
			Notes:     cell(row, index, "notes"),
		}
		if _, err := reg.Register(ctx, in); err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: err.Error()})
			continue
		}
		result.Imported++
	}

	logger.InfoContext(ctx, "Roster imported",
		log.FieldOperation, log.OpImport,
		"sheet", sheet,
		"imported", result.Imported,
		"rejected", len(result.Errors),
		"skipped", result.Skipped)
	return result, nil
}

func mapHeader(header []string) map[string]int {
	index := make(map[string]int)
	for i, h := range header {
		field, ok := columns[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := index[field]; !dup {
			index[field] = i
		}
	}
	return index
}

func cell(row []string, index map[string]int, field string) string {
	i, ok := index[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
