package core

import (
	"fmt"
	"strings"
	"time"
)

// DateTime wraps time.Time to pin the wire format: RFC 3339 in UTC, the shape
// the export file carries and the import path accepts.
type DateTime struct {
	time.Time
}

func Now() DateTime {
	return DateTime{Time: time.Now().UTC()}
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON accepts RFC 3339 timestamps, with or without sub-second
// precision, and bare dates. Anything else fails the import record.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse date %q: %w", s, ErrInvalidFormat)
}
