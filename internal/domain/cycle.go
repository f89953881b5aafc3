package domain

import (
	"fmt"
	"time"
)

// CyclePeriodDays is the length of one AIRAC cycle.
const CyclePeriodDays = 28

// CycleEpoch is the effective date of AIRAC cycle 2601. Every later cycle
// starts a whole number of periods after it.
var CycleEpoch = time.Date(2026, time.January, 22, 0, 0, 0, 0, time.UTC)

// Cycle is the AIRAC cycle in effect for a run. It is computed once and
// passed by value.
type Cycle struct {
	Start time.Time
}

// ResolveCycle returns the cycle effective on today. Only the calendar date of
// today is considered; the time of day and location are ignored.
func ResolveCycle(today time.Time) Cycle {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	delta := int(day.Sub(CycleEpoch).Hours() / 24)
	cycles := floorDiv(delta, CyclePeriodDays)
	return Cycle{Start: CycleEpoch.AddDate(0, 0, cycles*CyclePeriodDays)}
}

// CurrentCycle resolves the cycle for the package clock's current date.
func CurrentCycle() Cycle {
	return ResolveCycle(clock.Now())
}

// Date formats the cycle start as used in NASR download paths, e.g. "2026-01-22".
func (c Cycle) Date() string {
	return c.Start.Format("2006-01-02")
}

// Stamp formats the cycle start as the short metadata date, e.g. "01/22/26".
func (c Cycle) Stamp() string {
	return c.Start.Format("01/02/06")
}

// ID returns the four-digit AIRAC identifier YYNN, where NN counts the cycles
// that begin in the start date's year (2026-01-22 is "2601").
func (c Cycle) ID() string {
	n := 1
	for prev := c.Start.AddDate(0, 0, -CyclePeriodDays); prev.Year() == c.Start.Year(); prev = prev.AddDate(0, 0, -CyclePeriodDays) {
		n++
	}
	return fmt.Sprintf("%02d%02d", c.Start.Year()%100, n)
}

// Next returns the cycle that follows c.
func (c Cycle) Next() Cycle {
	return Cycle{Start: c.Start.AddDate(0, 0, CyclePeriodDays)}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
