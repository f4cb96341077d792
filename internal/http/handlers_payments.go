package http

import (
	"net/http"

	"classfees/internal/core"
)

// paymentView is a payment as listed: the student's display name when the
// student exists, the raw id and orphan=true when not.
type paymentView struct {
	core.Payment
	StudentName     string `json:"studentName"`
	Orphan          bool   `json:"orphan"`
	FormattedAmount string `json:"formattedAmount"`
}

type paymentsResponse struct {
	Payments []paymentView `json:"payments"`
	Count    int           `json:"count"`
	Total    float64       `json:"total"`
	Stale    bool          `json:"stale"`
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make(map[string]string, len(snap.Students))
	for _, st := range snap.Students {
		names[st.ID] = st.DisplayName()
	}
	resp := paymentsResponse{Payments: make([]paymentView, 0, len(snap.Payments)), Stale: snap.Stale}
	for _, p := range snap.Payments {
		name, ok := names[p.StudentID]
		if !ok {
			name = p.StudentID
		}
		resp.Payments = append(resp.Payments, paymentView{
			Payment:         p,
			StudentName:     name,
			Orphan:          !ok,
			FormattedAmount: s.money.Format(p.Amount.Effective()),
		})
		resp.Total += p.Amount.Effective()
	}
	resp.Count = len(resp.Payments)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var in core.PaymentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := s.payments.Record(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var patch core.PaymentPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.payments.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.payments.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
