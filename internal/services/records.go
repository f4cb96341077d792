package services

import (
	"strconv"
	"strings"

	"classfees/internal/core"
	"classfees/internal/docstore"
)

// Documents written by the first version of the roster used Spanish keys.
// They are read as aliases; new writes always use the primary key.
var (
	studentAliases = map[string][]string{
		"firstName": {"nombre"},
		"lastName":  {"apellido"},
		"phone":     {"telefono"},
		"course":    {"curso"},
		"notes":     {"observaciones"},
	}
	paymentAliases = map[string][]string{
		"studentId": {"alumnoId"},
		"date":      {"fecha"},
		"amount":    {"monto", "importe"},
		"months":    {"meses"},
	}
)

func lookup(fields map[string]any, key string, aliases map[string][]string) any {
	if v, ok := fields[key]; ok && v != nil {
		return v
	}
	for _, alt := range aliases[key] {
		if v, ok := fields[alt]; ok && v != nil {
			return v
		}
	}
	return nil
}

// StudentFromRecord decodes a student document. Missing or mistyped fields
// decode as empty strings.
func StudentFromRecord(r docstore.Record) core.Student {
	get := func(key string) string { return text(lookup(r.Fields, key, studentAliases)) }
	return core.Student{
		ID:        r.ID,
		FirstName: get("firstName"),
		LastName:  get("lastName"),
		Email:     get("email"),
		Phone:     get("phone"),
		Course:    get("course"),
		Notes:     get("notes"),
		CreatedAt: r.CreatedAt,
	}
}

// PaymentFromRecord decodes a payment document. The amount falls back to the
// legacy key when the primary one is absent or null.
func PaymentFromRecord(r docstore.Record) core.Payment {
	return core.Payment{
		ID:        r.ID,
		StudentID: text(lookup(r.Fields, "studentId", paymentAliases)),
		Date:      text(lookup(r.Fields, "date", paymentAliases)),
		Amount:    core.ParseAmount(lookup(r.Fields, "amount", paymentAliases)),
		Months:    stringList(lookup(r.Fields, "months", paymentAliases)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func StudentsFromRecords(recs []docstore.Record) []core.Student {
	out := make([]core.Student, len(recs))
	for i, r := range recs {
		out[i] = StudentFromRecord(r)
	}
	return out
}

func PaymentsFromRecords(recs []docstore.Record) []core.Payment {
	out := make([]core.Payment, len(recs))
	for i, r := range recs {
		out[i] = PaymentFromRecord(r)
	}
	return out
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		// a single month stored as a bare string
		if s := strings.TrimSpace(list); s != "" {
			return []string{s}
		}
	}
	return []string{}
}
