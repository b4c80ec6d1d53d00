package calendar

import (
	"fmt"
	"strings"
)

// Cadence is the fixed step between two occurrences of a recurring rule.
type Cadence int

const (
	Daily Cadence = iota + 1
	Weekly
	Monthly
)

func (c Cadence) String() string {
	switch c {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("cadence(%d)", int(c))
	}
}

// ParseCadence accepts the persisted labels and their short aliases.
func ParseCadence(s string) (Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	default:
		return 0, fmt.Errorf("unknown cadence %q", s)
	}
}

// Advance moves d forward by one cadence step.
//
// Monthly steps clamp to the last day of the target month: 2024-01-31 advances
// to 2024-02-29, which then advances to 2024-03-29.
func Advance(d Date, c Cadence) (Date, error) {
	switch c {
	case Daily:
		return d.AddDays(1), nil
	case Weekly:
		return d.AddDays(7), nil
	case Monthly:
		y, m := d.y, d.m+1
		if m > 12 {
			y, m = y+1, 1
		}
		day := d.d
		if last := daysIn(y, m); day > last {
			day = last
		}
		return Date{y, m, day}, nil
	default:
		return Date{}, fmt.Errorf("unknown cadence %d", int(c))
	}
}
