package limits

import (
	"testing"
	"time"

	"tradematch_backend/platform/apperr"
)

func int64Ptr(v int64) *int64 { return &v }

func TestRollResetsElapsedWindows(t *testing.T) {
	// Tuesday 2026-03-10 14:00 UTC.
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	thisWeek := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) // Monday
	thisMonth := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	c := Counters{
		Daily:   Window{SpentCents: 5000, Start: yesterday},
		Weekly:  Window{SpentCents: 20000, Start: thisWeek},
		Monthly: Window{SpentCents: 80000, Start: thisMonth},
	}

	rolled := Roll(c, now)

	if rolled.Daily.SpentCents != 0 {
		t.Errorf("expected daily window reset, got %d", rolled.Daily.SpentCents)
	}
	if !rolled.Daily.Start.Equal(DayStart(now)) {
		t.Errorf("expected daily start %v, got %v", DayStart(now), rolled.Daily.Start)
	}
	if rolled.Weekly.SpentCents != 20000 {
		t.Errorf("expected weekly window kept, got %d", rolled.Weekly.SpentCents)
	}
	if rolled.Monthly.SpentCents != 80000 {
		t.Errorf("expected monthly window kept, got %d", rolled.Monthly.SpentCents)
	}
}

func TestRollAcrossMonthBoundary(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 30, 0, 0, time.UTC)
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	c := Counters{Monthly: Window{SpentCents: 99999, Start: march}}
	rolled := Roll(c, now)

	if rolled.Monthly.SpentCents != 0 {
		t.Fatalf("expected monthly reset at month boundary, got %d", rolled.Monthly.SpentCents)
	}
}

func TestCheckBreachesNamedWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	c := Roll(Counters{}, now)
	c.Daily.SpentCents = 900
	c.Weekly.SpentCents = 900
	c.Monthly.SpentCents = 900

	tests := []struct {
		name   string
		caps   Caps
		amount int64
		wantOK bool
	}{
		{"no caps", Caps{}, 1 << 40, true},
		{"under all caps", Caps{DailyCents: int64Ptr(2000), WeeklyCents: int64Ptr(5000), MonthlyCents: int64Ptr(10000)}, 1000, true},
		{"exactly at daily cap", Caps{DailyCents: int64Ptr(1900)}, 1000, true},
		{"daily breach", Caps{DailyCents: int64Ptr(1899)}, 1000, false},
		{"weekly breach", Caps{WeeklyCents: int64Ptr(1000)}, 200, false},
		{"monthly breach", Caps{MonthlyCents: int64Ptr(1000)}, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(c, tt.caps, tt.amount)
			if tt.wantOK && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatalf("expected spend limit error, got nil")
				}
				if !apperr.Is(err, apperr.KindSpendLimit) {
					t.Fatalf("expected KindSpendLimit, got %v", err)
				}
			}
		})
	}
}

func TestConsumeAddsToAllWindows(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	c := Roll(Counters{}, now)

	c = Consume(c, 1500)
	c = Consume(c, 500)

	if c.Daily.SpentCents != 2000 || c.Weekly.SpentCents != 2000 || c.Monthly.SpentCents != 2000 {
		t.Fatalf("expected all windows at 2000, got %+v", c)
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	tests := []struct {
		day  time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},  // Monday
		{time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)}, // Wednesday
		{time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)}, // Sunday
	}

	for _, tt := range tests {
		if got := WeekStart(tt.day); !got.Equal(tt.want) {
			t.Errorf("WeekStart(%v) = %v, want %v", tt.day, got, tt.want)
		}
	}
}
