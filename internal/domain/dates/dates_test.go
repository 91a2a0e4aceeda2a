package dates

import (
	"testing"
	"time"
)

func TestParseStrict(t *testing.T) {
	if _, err := Parse("2023-05-17"); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
	for _, raw := range []string{"2023-02-30", "2023-5-17", "17/05/2023", "2023-05-17T00:00:00Z", ""} {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) accepted, want error", raw)
		}
	}
}

func TestMonthsBetween(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	cases := []struct {
		debut, fin time.Time
		want       int
	}{
		{day(2021, time.September, 1), day(2024, time.September, 1), 36},
		{day(2021, time.September, 30), day(2021, time.October, 1), 1},
		{day(2021, time.March, 1), day(2021, time.March, 28), 0},
		{day(2022, time.January, 1), day(2021, time.January, 1), 0},
	}
	for _, c := range cases {
		if got := MonthsBetween(c.debut, c.fin); got != c.want {
			t.Errorf("MonthsBetween(%s, %s) = %d, want %d", Format(c.debut), Format(c.fin), got, c.want)
		}
	}
}
