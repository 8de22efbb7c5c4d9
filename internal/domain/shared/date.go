package shared

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates
const DateLayout = time.DateOnly

// ParseDate parses a YYYY-MM-DD date as a UTC day. An empty value yields
// fallback; anything else that does not parse is an invalid input.
func ParseDate(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Date(fallback.Year(), fallback.Month(), fallback.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, InvalidInput(fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value))
	}
	return t, nil
}

// Today returns the current UTC day
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
