package report

import (
	"time"

	"budgetplanner/internal/core"
)

// Range keys accepted by the report screen.
const (
	RangeLast3Months = "last3months"
	RangeLast6Months = "last6months"
	RangeLastYear    = "lastyear"
)

// TrailingRange resolves a range key relative to now. Unknown keys fall back
// to six months; the returned key is the one actually applied.
func TrailingRange(key string, now time.Time) (core.DateRange, string) {
	today := core.DateOf(now.UTC())
	switch key {
	case RangeLast3Months:
		return core.DateRange{From: core.Date{Time: today.AddDate(0, -3, 0)}}, key
	case RangeLastYear:
		return core.DateRange{From: core.Date{Time: today.AddDate(-1, 0, 0)}}, key
	default:
		return core.DateRange{From: core.Date{Time: today.AddDate(0, -6, 0)}}, RangeLast6Months
	}
}
