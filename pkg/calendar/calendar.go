// Package calendar provides timezone-free day and month values used to bucket
// dated records.
package calendar

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	dateLayoutLen = len("2006-01-02")
	monthLayout   = "2006-01"
)

// Date is a calendar day with no time-of-day and no location.
type Date struct {
	civil.Date
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// ParseDate parses "YYYY-MM-DD", or the date prefix of an ISO timestamp such as
// "2024-01-05T23:00:00.000Z". The prefix is taken as written, never converted
// to another timezone.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > dateLayoutLen {
		switch s[dateLayoutLen] {
		case 'T', 't', ' ':
			s = s[:dateLayoutLen]
		}
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{d}, nil
}

// DateOf returns the day of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// Today returns the current day in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Date == civil.Date{}
}

// Equal reports whether d and other are the same day.
func (d Date) Equal(other Date) bool {
	return d.Date == other.Date
}

// YearMonth returns the month d falls in.
func (d Date) YearMonth() Month {
	return Month{Year: d.Year, Month: d.Month}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Date.String()
}

// MarshalText implements encoding.TextMarshaler. The zero date is empty.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer; dates are stored as TEXT.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = DateOf(v)
		return nil
	default:
		return fmt.Errorf("calendar: cannot scan %T into Date", src)
	}
}

// Month is a calendar year and month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Contains reports whether d falls within m.
func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(data []byte) error {
	if strings.TrimSpace(string(data)) == "" {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
