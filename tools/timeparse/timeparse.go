// Package timeparse parses the timestamp formats accepted by the history
// query filters and the telemetry wire payload.
package timeparse

import (
	"fmt"
	"strings"
	"time"
)

// ParseFilterTime parses a query filter bound. Accepts a date, a date with
// minutes, or a full date-time, with either 'T' or a space separating the
// time part; missing seconds normalize to :00 and a bare date to midnight.
func ParseFilterTime(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	s = strings.Replace(s, " ", "T", 1)

	formats := []string{
		"2006-01-02T15:04:05", // full timestamp
		"2006-01-02T15:04",    // minutes only, seconds implied :00
		"2006-01-02",          // date only, midnight implied
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse filter time '%s': %w", value, lastErr)
}

// ParseInstant parses the ISO-8601 instant carried by telemetry messages
func ParseInstant(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse instant '%s': %w", value, err)
	}
	return t, nil
}
