package domain

import (
	"fmt"
	"math"
	"time"
)

// Urgency is the normalized proximity signal for a due date: a whole-day
// distance, a display label, and a [0,100] progress value shared by UI
// styling and reminder gating.
type Urgency struct {
	DaysLeft int
	Label    string
	Progress int
}

// DaysBetween returns the whole-day difference between due and today. Both
// sides are truncated to midnight before comparison so sub-day noise never
// moves a subscription between buckets.
func DaysBetween(due, today time.Time) int {
	return int(atMidnight(due).Sub(atMidnight(today)).Hours() / 24)
}

func atMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Score computes the urgency of a due date relative to today for a given
// notification window. It is pure and never fails; a windowDays below 1 is
// clamped to 1 so the interpolation cannot divide by zero. Callers must
// handle the absent-due-date case upstream; there is no zero value that
// means "no cycle".
func Score(due, today time.Time, windowDays int) Urgency {
	daysLeft := DaysBetween(due, today)
	return Urgency{
		DaysLeft: daysLeft,
		Label:    urgencyLabel(daysLeft),
		Progress: urgencyProgress(daysLeft, windowDays),
	}
}

func urgencyLabel(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return fmt.Sprintf("%dd Overdue", -daysLeft)
	case daysLeft == 0:
		return "Today"
	case daysLeft == 1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("%d Days", daysLeft)
	}
}

func urgencyProgress(daysLeft, windowDays int) int {
	if windowDays < 1 {
		windowDays = 1
	}

	switch {
	case daysLeft < 0:
		return 100
	case daysLeft > windowDays:
		return 0
	default:
		return int(math.Round(float64(windowDays-daysLeft) / float64(windowDays) * 100))
	}
}
