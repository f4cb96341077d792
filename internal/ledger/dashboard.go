package ledger

import (
	"time"

	"classfees/internal/core"
)

type (
	StudentRow struct {
		Student  core.Student `json:"student"`
		Balance  float64      `json:"balance"`
		Payments int          `json:"payments"`
		Months   []string     `json:"months"`
	}

	Dashboard struct {
		TotalCollected          float64        `json:"totalCollected"`
		Year                    int            `json:"year"`
		Month                   int            `json:"month"`
		MonthlyIncome           float64        `json:"monthlyIncome"`
		StudentCount            int            `json:"studentCount"`
		PaymentCount            int            `json:"paymentCount"`
		StudentsWithoutPayments int            `json:"studentsWithoutPayments"`
		Students                []StudentRow   `json:"students"`
		Orphans                 []core.Payment `json:"orphans"`
	}
)

// Summarize builds the dashboard for the calendar month containing now.
func Summarize(students []core.Student, payments []core.Payment, now time.Time) Dashboard {
	return SummarizeMonth(students, payments, now.Year(), int(now.Month()))
}

// SummarizeMonth builds the dashboard for an explicit year and month.
func SummarizeMonth(students []core.Student, payments []core.Payment, year, month int) Dashboard {
	d := Dashboard{
		TotalCollected:          TotalCollected(payments),
		Year:                    year,
		Month:                   month,
		MonthlyIncome:           MonthlyIncome(payments, year, month),
		StudentCount:            len(students),
		PaymentCount:            len(payments),
		StudentsWithoutPayments: StudentsWithoutPayments(students, payments),
		Students:                make([]StudentRow, 0, len(students)),
		Orphans:                 OrphanPayments(students, payments),
	}

	byStudent := make(map[string][]core.Payment)
	for _, p := range payments {
		byStudent[p.StudentID] = append(byStudent[p.StudentID], p)
	}
	for _, s := range students {
		own := byStudent[s.ID]
		d.Students = append(d.Students, StudentRow{
			Student:  s,
			Balance:  TotalCollected(own),
			Payments: len(own),
			Months:   CoveredMonths(own, s.ID),
		})
	}
	return d
}
