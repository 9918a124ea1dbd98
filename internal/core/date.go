package core

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date at UTC midnight.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day. Out-of-range values
// normalize the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD", Err: ErrInvalidDate}
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "cannot be zero", Err: ErrInvalidDate}
	}
	if y := d.Time.Year(); y < 1 || y > 9999 {
		return &ValidationError{Field: "date", Reason: "year out of range", Err: ErrInvalidDate}
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddMonthsClipped advances the date by n calendar months, clipping the day
// to the last valid day of the target month (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonthsClipped(n int) Date {
	y, m, day := d.Time.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(target.Year(), target.Month())
	if day > last {
		day = last
	}
	return NewDate(target.Year(), int(target.Month()), day)
}

// MonthRange returns the first and last day of the given month, inclusive.
func MonthRange(year, month int) (Date, Date, error) {
	if month < 1 || month > 12 {
		return Date{}, Date{}, &ValidationError{Field: "month", Reason: "must be between 1 and 12", Err: ErrInvalidMonth}
	}
	if year < 1 || year > 9999 {
		return Date{}, Date{}, &ValidationError{Field: "year", Reason: "must be between 1 and 9999", Err: ErrInvalidMonth}
	}
	first := NewDate(year, month, 1)
	last := NewDate(year, month, daysIn(year, time.Month(month)))
	return first, last, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
