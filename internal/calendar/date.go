// Package calendar provides the date-only values used by ledger records and the
// cadence arithmetic that drives recurring rules.
//
// Dates never carry a time of day. They are persisted and compared in their
// YYYY-MM-DD form, where lexical and chronological ordering coincide.
package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the persisted form of a Date.
const Layout = "2006-01-02"

// UTCOffset is the fixed offset that decides which local day "now" falls on.
const UTCOffset = 8 * time.Hour

// Zone is the fixed local-day zone (UTC+8).
var Zone = time.FixedZone("UTC+8", int(UTCOffset/time.Second))

// Date is a calendar day with no time component. The zero value is invalid.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date, so New(2024, 1, 32) is 2024-02-01.
func New(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{y, m, d}
}

// Today returns the local day of now in the fixed UTC+8 convention.
func Today(now time.Time) Date {
	return New(now.In(Zone).Date())
}

// Parse reads a strict YYYY-MM-DD date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", s, Layout, err)
	}
	return New(t.Date()), nil
}

// MonthLayout is the format of month keys.
const MonthLayout = "2006-01"

// ParseMonth validates a strict YYYY-MM month key and returns it.
func ParseMonth(s string) (string, error) {
	if _, err := time.Parse(MonthLayout, s); err != nil {
		return "", fmt.Errorf("invalid month %q, want format %q: %w", s, MonthLayout, err)
	}
	return s, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) Year() int         { return d.y }
func (d Date) Month() time.Month { return d.m }
func (d Date) Day() int          { return d.d }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return New(d.y, d.m, d.d+n) }

func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }
func (d Date) After(x Date) bool  { return d.time().After(x.time()) }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.time().Format(Layout) }

// MonthKey formats the date as YYYY-MM, the key budgets are stored under.
func (d Date) MonthKey() string { return d.time().Format(MonthLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var (
	_ json.Marshaler   = Date{}
	_ json.Unmarshaler = (*Date)(nil)
)

// daysIn returns the number of days of the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
