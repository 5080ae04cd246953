package domain

import (
	"strconv"
	"strings"
	"time"
)

// Unit is the calendar unit a recurrence rule advances by.
type Unit string

const (
	UnitDay   Unit = "DAY"
	UnitWeek  Unit = "WEEK"
	UnitMonth Unit = "MONTH"
	UnitYear  Unit = "YEAR"
)

func (u Unit) String() string { return string(u) }

func (u Unit) IsValid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// Rule is the parsed form of a subscription's recurrence string. The source
// vocabulary is closed: Daily, Weekly, Monthly, Yearly, Custom, and
// "Every <N> <Unit>". Anything else parses into the one-month fallback so a
// malformed rule still yields a forward date instead of none; Fallback is set
// so that policy stays visible to callers and tests.
type Rule struct {
	Custom   bool
	Every    int
	Unit     Unit
	Fallback bool
}

var namedRules = map[string]Rule{
	"Daily":   {Every: 1, Unit: UnitDay},
	"Weekly":  {Every: 1, Unit: UnitWeek},
	"Monthly": {Every: 1, Unit: UnitMonth},
	"Yearly":  {Every: 1, Unit: UnitYear},
}

var parametrizedUnits = map[string]Unit{
	"Day":    UnitDay,
	"Days":   UnitDay,
	"Week":   UnitWeek,
	"Weeks":  UnitWeek,
	"Month":  UnitMonth,
	"Months": UnitMonth,
	"Year":   UnitYear,
	"Years":  UnitYear,
}

func fallbackRule() Rule {
	return Rule{Every: 1, Unit: UnitMonth, Fallback: true}
}

// ParseRule parses a recurrence string. It never fails: unparsable input
// degrades to the monthly fallback.
func ParseRule(s string) Rule {
	trimmed := strings.TrimSpace(s)

	if trimmed == "Custom" {
		return Rule{Custom: true}
	}
	if rule, ok := namedRules[trimmed]; ok {
		return rule
	}
	if rest, ok := strings.CutPrefix(trimmed, "Every "); ok {
		return parseParametrized(rest)
	}

	return fallbackRule()
}

func parseParametrized(rest string) Rule {
	parts := strings.Fields(rest)
	if len(parts) != 2 {
		return fallbackRule()
	}

	every, err := strconv.Atoi(parts[0])
	if err != nil || every < 1 {
		return fallbackRule()
	}

	unit, ok := parametrizedUnits[parts[1]]
	if !ok {
		return fallbackRule()
	}

	return Rule{Every: every, Unit: unit}
}

// NextDueDate resolves the due date that follows fromDate under the given
// recurrence string. The second return is false for Custom rules, which have
// no defined next cycle. The result is pinned to midday UTC so that only the
// date component carries meaning across timezones.
func NextDueDate(fromDate time.Time, recurrence string) (time.Time, bool) {
	rule := ParseRule(recurrence)
	if rule.Custom {
		return time.Time{}, false
	}

	base := AtMidday(fromDate)

	switch rule.Unit {
	case UnitDay:
		return base.AddDate(0, 0, rule.Every), true
	case UnitWeek:
		return base.AddDate(0, 0, 7*rule.Every), true
	case UnitYear:
		return addMonthsClamped(base, 12*rule.Every), true
	default:
		return addMonthsClamped(base, rule.Every), true
	}
}

// AtMidday pins a timestamp to 12:00 UTC on its calendar day. Stored due
// dates always carry this time so date comparisons are stable.
func AtMidday(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// addMonthsClamped advances by whole months, landing on the last valid day
// when the source day does not exist in the target month (Jan 31 + 1 month is
// the end of February, not March 2nd). time.AddDate would normalize the
// overflow forward, which is wrong for billing dates.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	total := int(month) - 1 + months
	targetYear := year + total/12
	targetMonth := time.Month(total%12 + 1)
	if total < 0 {
		// Go integer division truncates toward zero; re-normalize for
		// negative month offsets.
		targetYear = year + (total-11)/12
		targetMonth = time.Month((total%12+12)%12 + 1)
	}

	if last := daysInMonth(targetYear, targetMonth); day > last {
		day = last
	}

	hour, minute, sec := t.Clock()
	return time.Date(targetYear, targetMonth, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
