package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Normalize returns a JSON-shaped deep copy of fields (numbers become
// float64, slices []any) with reserved names removed, so every backend hands
// back the same value types.
func Normalize(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("fields are not JSON-encodable: %w", err)
	}
	out := make(map[string]any, len(fields))
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	delete(out, FieldID)
	delete(out, FieldCreatedAt)
	delete(out, FieldUpdatedAt)
	return out, nil
}

// ValidateName rejects empty collection names and field names.
func ValidateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name is empty", kind)
	}
	return nil
}

// Value returns the value of a field or reserved name on r.
func (r Record) Value(field string) any {
	switch field {
	case FieldID:
		return r.ID
	case FieldCreatedAt:
		return r.CreatedAt
	case FieldUpdatedAt:
		if r.UpdatedAt.IsZero() {
			return nil
		}
		return r.UpdatedAt
	}
	return r.Fields[field]
}

// Matches reports whether r satisfies an equality filter.
func (f Filter) Matches(r Record) bool {
	got := r.Value(f.Field)
	if got == nil || f.Value == nil {
		return got == nil && f.Value == nil
	}
	gn, gok := toFloat(got)
	wn, wok := toFloat(f.Value)
	if gok && wok {
		return gn == wn
	}
	return reflect.DeepEqual(got, f.Value)
}

// Sort orders records in place. Records that compare equal keep their
// relative order, so callers pass them in insertion order.
func Sort(records []Record, order *Order) {
	if order == nil {
		return
	}
	desc := order.Direction == Desc
	sort.SliceStable(records, func(i, j int) bool {
		c := Compare(records[i].Value(order.Field), records[j].Value(order.Field))
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// Compare orders values by kind first (missing, bool, number, time, string,
// other) and then by value.
func Compare(a, b any) int {
	ka, kb := kindRank(a), kindRank(b)
	if ka != kb {
		return ka - kb
	}
	switch ka {
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		an, _ := toFloat(a)
		bn, _ := toFloat(b)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case 3:
		return timeOf(a).Compare(timeOf(b))
	case 4:
		return strings.Compare(a.(string), b.(string))
	case 5:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	return 0
}

func kindRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64, float32, int, int32, int64, json.Number:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	default:
		return 5
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func timeOf(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}
