package core

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage form of payment dates.
const DateLayout = "2006-01-02"

// ParseYearMonth extracts the calendar year and 1-indexed month from a
// "YYYY-MM-DD" string. Only the first two dash-separated components are
// read. ok is false for empty, non-numeric or out-of-range input.
func ParseYearMonth(date string) (year, month int, ok bool) {
	parts := strings.Split(strings.TrimSpace(date), "-")
	if len(parts) < 2 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, m, true
}

// IsISODate reports whether s is a valid calendar date in DateLayout.
func IsISODate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
