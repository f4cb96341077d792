package core

import "time"

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent announces a successful write to a collection. Payment and
// StudentName are filled when the writer has them at hand; consumers must
// not rely on either.
type ChangeEvent struct {
	Collection  string    `json:"collection"`
	Op          string    `json:"op"`
	ID          string    `json:"id"`
	Payment     *Payment  `json:"payment,omitempty"`
	StudentName string    `json:"studentName,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
