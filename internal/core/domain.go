package core

import (
	"strings"
	"time"
)

// Collection names in the document store.
const (
	StudentsCollection = "students"
	PaymentsCollection = "payments"
)

// Placeholder is rendered in place of absent optional fields.
const Placeholder = "-"

type (
	Student struct {
		ID        string    `json:"id"`
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		Email     string    `json:"email"`
		Phone     string    `json:"phone,omitempty"`
		Course    string    `json:"course,omitempty"`
		Notes     string    `json:"notes,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Payment struct {
		ID        string    `json:"id"`
		StudentID string    `json:"studentId"`
		Date      string    `json:"date"` // YYYY-MM-DD
		Amount    Amount    `json:"amount"`
		Months    []string  `json:"months"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt,omitempty"`
	}
)

// DisplayName returns "First Last", or the id when both names are blank.
func (s Student) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if name == "" {
		return s.ID
	}
	return name
}

// OrPlaceholder returns v, or Placeholder when v is blank.
func OrPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}
