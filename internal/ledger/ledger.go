// Package ledger computes dashboard figures from in-memory snapshots of
// students and payments. Every function is pure: malformed fields degrade to
// zero or are skipped, never reported.
package ledger

import (
	"time"

	"classfees/internal/core"
)

// TotalCollected sums the effective amount of every payment.
func TotalCollected(payments []core.Payment) float64 {
	var total float64
	for _, p := range payments {
		total += p.Amount.Effective()
	}
	return total
}

// MonthlyIncome sums payments dated in the given year and 1-indexed month.
// Payments whose date cannot be parsed belong to no month.
func MonthlyIncome(payments []core.Payment, year, month int) float64 {
	var total float64
	for _, p := range payments {
		y, m, ok := core.ParseYearMonth(p.Date)
		if ok && y == year && m == month {
			total += p.Amount.Effective()
		}
	}
	return total
}

// CurrentMonthIncome is MonthlyIncome for the calendar month containing now.
func CurrentMonthIncome(payments []core.Payment, now time.Time) float64 {
	return MonthlyIncome(payments, now.Year(), int(now.Month()))
}

// YearBreakdown returns income per month of year, January first.
func YearBreakdown(payments []core.Payment, year int) [12]float64 {
	var out [12]float64
	for _, p := range payments {
		y, m, ok := core.ParseYearMonth(p.Date)
		if ok && y == year {
			out[m-1] += p.Amount.Effective()
		}
	}
	return out
}

// StudentBalance is the total paid by one student; 0 for unknown ids.
func StudentBalance(payments []core.Payment, studentID string) float64 {
	var total float64
	for _, p := range payments {
		if p.StudentID == studentID {
			total += p.Amount.Effective()
		}
	}
	return total
}

// StudentsWithoutPayments counts students referenced by no payment.
func StudentsWithoutPayments(students []core.Student, payments []core.Payment) int {
	paid := referenced(payments)
	n := 0
	for _, s := range students {
		if _, ok := paid[s.ID]; !ok {
			n++
		}
	}
	return n
}

// PaymentsForStudent filters payments by student, keeping input order.
func PaymentsForStudent(payments []core.Payment, studentID string) []core.Payment {
	out := []core.Payment{}
	for _, p := range payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out
}

// CoveredMonths lists the distinct billing months a student has paid for,
// in first-seen order.
func CoveredMonths(payments []core.Payment, studentID string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range payments {
		if p.StudentID != studentID {
			continue
		}
		for _, m := range p.Months {
			if _, dup := seen[m]; dup || m == "" {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// OrphanPayments returns payments whose student is not in students.
func OrphanPayments(students []core.Student, payments []core.Payment) []core.Payment {
	known := make(map[string]struct{}, len(students))
	for _, s := range students {
		known[s.ID] = struct{}{}
	}
	out := []core.Payment{}
	for _, p := range payments {
		if _, ok := known[p.StudentID]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func referenced(payments []core.Payment) map[string]struct{} {
	ids := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		ids[p.StudentID] = struct{}{}
	}
	return ids
}
