package http

import (
	"net/http"
	"strconv"
	"strings"

	"classfees/internal/core"
	"classfees/internal/ledger"
	"classfees/internal/services"
)

var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

func monthName(month int) string {
	if month < 1 || month > 12 {
		return strconv.Itoa(month)
	}
	return monthNames[month-1]
}

type dashboardResponse struct {
	ledger.Dashboard
	Formatted struct {
		TotalCollected string `json:"totalCollected"`
		MonthlyIncome  string `json:"monthlyIncome"`
	} `json:"formatted"`
	Stale bool `json:"stale"`
}

type monthIncome struct {
	Month     int     `json:"month"`
	Name      string  `json:"name"`
	Income    float64 `json:"income"`
	Formatted string  `json:"formatted"`
}

type yearResponse struct {
	Year   int           `json:"year"`
	Months []monthIncome `json:"months"`
	Total  float64       `json:"total"`
	Stale  bool          `json:"stale"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.snapshots.Now())

	resp := dashboardResponse{
		Dashboard: ledger.SummarizeMonth(snap.Students, snap.Payments, p.Year, p.Month),
		Stale:     snap.Stale,
	}
	resp.Formatted.TotalCollected = s.money.Format(resp.TotalCollected)
	resp.Formatted.MonthlyIncome = s.money.Format(resp.MonthlyIncome)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleYearBreakdown(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	year := ParseMonthParams(r.URL.Query(), s.snapshots.Now()).Year
	writeJSON(w, http.StatusOK, s.yearOf(snap, year))
}

func (s *Server) yearOf(snap services.Snapshot, year int) yearResponse {
	breakdown := ledger.YearBreakdown(snap.Payments, year)
	resp := yearResponse{Year: year, Months: make([]monthIncome, 0, 12), Stale: snap.Stale}
	for i, v := range breakdown {
		resp.Months = append(resp.Months, monthIncome{
			Month:     i + 1,
			Name:      monthNames[i],
			Income:    v,
			Formatted: s.money.Format(v),
		})
		resp.Total += v
	}
	return resp
}

type dashboardPage struct {
	Dashboard  ledger.Dashboard
	Rows       []ledger.StudentRow
	Breakdown  [12]float64
	Years      []int
	MonthNames [12]string
	Query      string
	Stale      bool
}

// handleIndex renders the dashboard page. q narrows the student table
// without changing the figures.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	snap, err := s.snapshots.Get(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.snapshots.Now())
	query := sanitizeInput(r.URL.Query().Get("q"))

	dash := ledger.SummarizeMonth(snap.Students, snap.Payments, p.Year, p.Month)
	data := dashboardPage{
		Dashboard:  dash,
		Rows:       filterRows(dash.Students, query),
		Breakdown:  ledger.YearBreakdown(snap.Payments, p.Year),
		Years:      yearChoices(s.snapshots.Now().Year(), p.Year),
		MonthNames: monthNames,
		Query:      query,
		Stale:      snap.Stale,
	}
	s.render(w, r, "dashboard.html", data)
}

func filterRows(rows []ledger.StudentRow, query string) []ledger.StudentRow {
	if strings.TrimSpace(query) == "" {
		return rows
	}
	students := make([]core.Student, len(rows))
	for i, row := range rows {
		students[i] = row.Student
	}
	keep := make(map[string]bool)
	for _, st := range services.Search(students, query) {
		keep[st.ID] = true
	}
	out := make([]ledger.StudentRow, 0, len(keep))
	for _, row := range rows {
		if keep[row.Student.ID] {
			out = append(out, row)
		}
	}
	return out
}

// yearChoices offers last year through next year, plus selected if outside.
func yearChoices(current, selected int) []int {
	years := []int{current - 1, current, current + 1}
	if selected < current-1 {
		years = append([]int{selected}, years...)
	} else if selected > current+1 {
		years = append(years, selected)
	}
	return years
}
