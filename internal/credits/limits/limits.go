// Package limits implements rolling daily/weekly/monthly spend windows.
// Counters are stored with their window-start timestamps and rolled lazily on
// read: a window whose period has elapsed resets to zero before the check.
// The limiter is advisory for solvency (the ledger balance is authoritative)
// but binding for the caps themselves.
package limits

import (
	"time"

	"tradematch_backend/platform/apperr"
)

const (
	msgDailyExceeded   = "daily spend limit exceeded, limit resets tomorrow"
	msgWeeklyExceeded  = "weekly spend limit exceeded, limit resets next week"
	msgMonthlyExceeded = "monthly spend limit exceeded, limit resets next month"
)

// Caps holds the configured per-vendor limits. A nil cap means unlimited.
type Caps struct {
	DailyCents   *int64
	WeeklyCents  *int64
	MonthlyCents *int64
}

// Window is one rolling counter: amount spent since the window started.
type Window struct {
	SpentCents int64
	Start      time.Time
}

// Counters holds all three rolling windows for one vendor.
type Counters struct {
	Daily   Window
	Weekly  Window
	Monthly Window
}

// Roll resets any window whose period has elapsed relative to now. The
// returned counters are safe to check and consume against.
func Roll(c Counters, now time.Time) Counters {
	if day := DayStart(now); c.Daily.Start.Before(day) {
		c.Daily = Window{Start: day}
	}
	if week := WeekStart(now); c.Weekly.Start.Before(week) {
		c.Weekly = Window{Start: week}
	}
	if month := MonthStart(now); c.Monthly.Start.Before(month) {
		c.Monthly = Window{Start: month}
	}
	return c
}

// Check reports whether charging amountCents would breach any cap. Counters
// must already be rolled. Returns a SpendLimit error naming the breached
// window, or nil.
func Check(c Counters, caps Caps, amountCents int64) error {
	if caps.DailyCents != nil && c.Daily.SpentCents+amountCents > *caps.DailyCents {
		return apperr.SpendLimit(msgDailyExceeded)
	}
	if caps.WeeklyCents != nil && c.Weekly.SpentCents+amountCents > *caps.WeeklyCents {
		return apperr.SpendLimit(msgWeeklyExceeded)
	}
	if caps.MonthlyCents != nil && c.Monthly.SpentCents+amountCents > *caps.MonthlyCents {
		return apperr.SpendLimit(msgMonthlyExceeded)
	}
	return nil
}

// Consume adds amountCents to every window. Counters must already be rolled
// and checked.
func Consume(c Counters, amountCents int64) Counters {
	c.Daily.SpentCents += amountCents
	c.Weekly.SpentCents += amountCents
	c.Monthly.SpentCents += amountCents
	return c
}

// DayStart returns midnight UTC of now's day.
func DayStart(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns midnight UTC of the Monday of now's week.
func WeekStart(now time.Time) time.Time {
	day := DayStart(now)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// MonthStart returns midnight UTC of the first of now's month.
func MonthStart(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
}
