package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a payment amount as found in a stored document. Documents are
// schemaless, so the value may be missing, null or not a number at all; the
// effective amount of any such value is zero.
type Amount struct {
	value   float64
	numeric bool
	// coerced marks values that only count as numbers under lenient
	// conversion: blank strings and booleans.
	coerced bool
}

// AmountOf returns a numeric Amount.
func AmountOf(v float64) Amount {
	return Amount{value: v, numeric: true}
}

// ParseAmount coerces a raw document value the way a lenient number
// conversion would: numbers pass through, numeric strings are parsed (blank
// strings count as 0), booleans are 1 or 0. Anything else is not numeric.
func ParseAmount(v any) Amount {
	switch val := v.(type) {
	case nil:
		return Amount{}
	case Amount:
		return val
	case float64:
		return AmountOf(val)
	case float32:
		return AmountOf(float64(val))
	case int:
		return AmountOf(float64(val))
	case int32:
		return AmountOf(float64(val))
	case int64:
		return AmountOf(float64(val))
	case json.Number:
		return ParseAmount(string(val))
	case bool:
		a := AmountOf(0)
		if val {
			a = AmountOf(1)
		}
		a.coerced = true
		return a
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return Amount{numeric: true, coerced: true}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Amount{}
		}
		return AmountOf(f)
	default:
		return Amount{}
	}
}

// Numeric reports whether the amount holds a finite number.
func (a Amount) Numeric() bool {
	return a.numeric && !math.IsNaN(a.value) && !math.IsInf(a.value, 0)
}

// Entered reports whether the amount was given as a real number: a number
// or a non-blank numeric string. Form input is held to this; stored
// documents are not.
func (a Amount) Entered() bool {
	return a.Numeric() && !a.coerced
}

// Effective is the value used for every aggregate: the number itself, or 0
// when the amount is missing or malformed.
func (a Amount) Effective() float64 {
	if !a.Numeric() {
		return 0
	}
	return a.value
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Numeric() {
		return []byte("null"), nil
	}
	return json.Marshal(a.value)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*a = ParseAmount(raw)
	return nil
}
