package http

import (
	"net/http"

	"classfees/internal/core"
	"classfees/internal/ledger"
	"classfees/internal/services"
)

type studentsResponse struct {
	Students []core.Student `json:"students"`
	Count    int            `json:"count"`
	Stale    bool           `json:"stale"`
}

type studentPaymentsResponse struct {
	StudentID string         `json:"studentId"`
	Student   *core.Student  `json:"student"`
	Orphan    bool           `json:"orphan"`
	Payments  []core.Payment `json:"payments"`
	Balance   float64        `json:"balance"`
	Formatted string         `json:"formattedBalance"`
	Months    []string       `json:"months"`
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, stale, err := s.students.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q := sanitizeInput(r.URL.Query().Get("q")); q != "" {
		students = services.Search(students, q)
	}
	writeJSON(w, http.StatusOK, studentsResponse{Students: students, Count: len(students), Stale: stale})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var in core.StudentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	student, err := s.students.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/students/"+student.ID)
	writeJSON(w, http.StatusCreated, student)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var patch core.StudentPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.students.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteStudent removes the student only; their payments become orphans.
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.students.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStudentPayments(w http.ResponseWriter, r *http.Request) {
	resp, err := s.studentLedger(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// studentLedger gathers one student's history. A deleted student still has
// a ledger; it is reported as an orphan with a nil student.
func (s *Server) studentLedger(r *http.Request) (studentPaymentsResponse, error) {
	id := r.PathValue("id")
	student, found, err := s.students.Get(r.Context(), id)
	if err != nil {
		return studentPaymentsResponse{}, err
	}
	payments, err := s.payments.ForStudent(r.Context(), id)
	if err != nil {
		return studentPaymentsResponse{}, err
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	balance := ledger.StudentBalance(payments, id)
	resp := studentPaymentsResponse{
		StudentID: id,
		Orphan:    !found,
		Payments:  payments,
		Balance:   balance,
		Formatted: s.money.Format(balance),
		Months:    ledger.CoveredMonths(payments, id),
	}
	if found {
		resp.Student = &student
	}
	return resp, nil
}

type studentPage struct {
	Student  core.Student
	Payments []core.Payment
	Balance  float64
	Months   []string
	Stale    bool
}

func (s *Server) handleStudentPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	resp, err := s.studentLedger(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if resp.Student == nil && len(resp.Payments) == 0 {
		http.NotFound(w, r)
		return
	}
	data := studentPage{
		Payments: resp.Payments,
		Balance:  resp.Balance,
		Months:   resp.Months,
	}
	if resp.Student != nil {
		data.Student = *resp.Student
	} else {
		data.Student = core.Student{ID: resp.StudentID}
	}
	s.render(w, r, "student.html", data)
}
