package usage

import (
	"testing"
	"time"
)

func TestPeriodBounds_MonthEdges(t *testing.T) {
	at := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	start, end := PeriodBounds(at)
	if !start.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if !end.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", end)
	}

	// The last second of the month still falls inside its period.
	start, end = PeriodBounds(time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC))
	if start.Month() != time.January || !end.After(start.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected bounds: %v %v", start, end)
	}

	// December rolls into the new year.
	start, end = PeriodBounds(time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC))
	if start.Month() != time.December || !end.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bounds: %v %v", start, end)
	}

	// Non-UTC inputs normalize to UTC before bucketing.
	loc := time.FixedZone("UTC+14", 14*3600)
	start, _ = PeriodBounds(time.Date(2024, time.March, 1, 0, 30, 0, 0, loc))
	if start.Month() != time.February {
		t.Fatalf("expected February bucket for UTC+14 local March 1st, got %v", start)
	}
}

func TestBillableMinutes_RoundsUp(t *testing.T) {
	cases := []struct{ sec, want int }{
		{0, 0},
		{-5, 0},
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{272, 5},
	}
	for _, tc := range cases {
		if got := BillableMinutes(tc.sec); got != tc.want {
			t.Fatalf("BillableMinutes(%d) = %d, want %d", tc.sec, got, tc.want)
		}
	}
}

func TestOverageSplit(t *testing.T) {
	used, over, cents := OverageSplit(150, 200, 35)
	if used != 150 || over != 0 || cents != 0 {
		t.Fatalf("unexpected split: %d %d %d", used, over, cents)
	}

	used, over, cents = OverageSplit(250, 200, 35)
	if used != 200 || over != 50 || cents != 1750 {
		t.Fatalf("unexpected split: %d %d %d", used, over, cents)
	}

	// No subscription: everything is overage.
	used, over, cents = OverageSplit(10, 0, 35)
	if used != 0 || over != 10 || cents != 350 {
		t.Fatalf("unexpected split: %d %d %d", used, over, cents)
	}
}
