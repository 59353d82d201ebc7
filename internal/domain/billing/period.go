package billing

import (
	"fmt"
	"time"
)

// CycleStartDay is the day of month on which a billing period begins.
// Warehouse suppliers invoice on a 16th-to-15th cycle rather than calendar months.
const CycleStartDay = 16

// BillingPeriod is a single 16th-to-15th billing window.
// It is derived purely from a reference date and never persisted.
type BillingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BillingPeriodFor returns the billing period containing the reference date.
//
// If the reference date falls on or after the 16th, the period runs from the
// 16th of that month to the 15th of the next month. Otherwise it runs from the
// 16th of the previous month to the 15th of the reference month. The end is set
// to the last instant of the 15th so inclusive date-range queries behave
// correctly regardless of the time-of-day component.
func BillingPeriodFor(ref time.Time) BillingPeriod {
	loc := ref.Location()
	year, month := ref.Year(), ref.Month()

	var start time.Time
	if ref.Day() >= CycleStartDay {
		start = time.Date(year, month, CycleStartDay, 0, 0, 0, 0, loc)
	} else {
		start = time.Date(year, month-1, CycleStartDay, 0, 0, 0, 0, loc)
	}

	// time.Date normalizes month overflow, so December rolls into January.
	end := time.Date(start.Year(), start.Month()+1, CycleStartDay-1,
		23, 59, 59, int(time.Second-time.Nanosecond), loc)

	return BillingPeriod{Start: start, End: end}
}

// Contains reports whether t falls within the period (inclusive of both ends).
func (p BillingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// String returns a human-readable representation of the period.
func (p BillingPeriod) String() string {
	return fmt.Sprintf("%s to %s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}
