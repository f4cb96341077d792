// Package docstore is the port to the remote document store: named
// collections of schemaless records with store-assigned ids and timestamps.
package docstore

import (
	"context"
	"time"
)

// Reserved names usable in Order.Field. They are never stored in Fields.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type (
	Record struct {
		ID        string
		Fields    map[string]any
		CreatedAt time.Time
		UpdatedAt time.Time // zero until the first update
	}

	Order struct {
		Field     string
		Direction Direction
	}

	// Filter matches records whose Field equals Value.
	Filter struct {
		Field string
		Value any
	}
)

// NewestFirst orders by creation time, descending.
func NewestFirst() *Order {
	return &Order{Field: FieldCreatedAt, Direction: Desc}
}

// Store is implemented by every backend. Every error returned is a *Error.
type Store interface {
	FetchAll(ctx context.Context, collection string, order *Order) ([]Record, error)
	FetchFiltered(ctx context.Context, collection string, filter Filter, order *Order) ([]Record, error)
	// Insert stamps createdAt and returns the new id.
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	// UpdateByID merges fields into an existing record and stamps updatedAt.
	UpdateByID(ctx context.Context, collection, id string, fields map[string]any) error
	// DeleteByID removes a record; a missing id is not an error.
	DeleteByID(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
}
