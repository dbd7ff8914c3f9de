package soap

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the wire format for dates, matching the shape the language
// model is instructed to produce.
const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. The zero value is "no
// date" and marshals as null.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// Time returns the date as a time.Time at midnight UTC.
func (d Date) Time() time.Time { return d.t }

// String returns the date in YYYY-MM-DD form, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// Format renders the date with the given time layout, or "" when unset.
func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(layout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes "YYYY-MM-DD" or null. Empty strings decode as unset
// so model output with "" for an omitted date does not fail the parse.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
