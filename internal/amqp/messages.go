package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"classfees/internal/core"
)

// EncodeChange serializes an event for the wire.
func EncodeChange(event core.ChangeEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeChange parses a delivery body. Events without a collection, op or
// id are rejected so they are dropped rather than requeued forever.
func DecodeChange(data []byte) (core.ChangeEvent, error) {
	var event core.ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return core.ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if event.Collection == "" || event.Op == "" || event.ID == "" {
		return core.ChangeEvent{}, errors.New("decode change event: collection, op and id are required")
	}
	switch event.Op {
	case core.OpCreate, core.OpUpdate, core.OpDelete:
	default:
		return core.ChangeEvent{}, fmt.Errorf("decode change event: unknown op %q", event.Op)
	}
	return event, nil
}
