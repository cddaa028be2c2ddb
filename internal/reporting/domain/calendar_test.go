package domain

import (
	"testing"
	"time"
)

func TestHourWindowsTiling(t *testing.T) {
	now := Epoch.Add(73*time.Hour + 20*time.Minute)

	var windows []Window
	for w := range HourWindows(Epoch, now) {
		windows = append(windows, w)
	}

	if len(windows) != 74 {
		t.Fatalf("expected 74 windows, got %d", len(windows))
	}
	if !windows[0].Start.Equal(Epoch) {
		t.Fatalf("first window starts at %s, want %s", windows[0].Start, Epoch)
	}
	for i, w := range windows {
		if w.End.Sub(w.Start) != time.Hour {
			t.Fatalf("window %d is %s wide", i, w.End.Sub(w.Start))
		}
		if i > 0 && !windows[i-1].End.Equal(w.Start) {
			t.Fatalf("window %d does not start where window %d ends", i, i-1)
		}
	}
}

func TestHourWindowsRestartable(t *testing.T) {
	seq := HourWindows(Epoch, Epoch.Add(5*time.Hour))

	first := 0
	for range seq {
		first++
	}
	second := 0
	for w := range seq {
		if second == 0 && !w.Start.Equal(Epoch) {
			t.Fatalf("second pass did not restart at epoch: %s", w.Start)
		}
		second++
	}
	if first != 5 || second != 5 {
		t.Fatalf("expected 5 windows on each pass, got %d and %d", first, second)
	}
}

func TestWindowCount(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before epoch", Epoch.Add(-time.Hour), 0},
		{"at epoch", Epoch, 0},
		{"one minute in", Epoch.Add(time.Minute), 1},
		{"exactly one hour", Epoch.Add(time.Hour), 1},
		{"one hour and a second", Epoch.Add(time.Hour + time.Second), 2},
		{"one day", Epoch.Add(24 * time.Hour), 24},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WindowCount(Epoch, tc.now); got != tc.want {
				t.Fatalf("WindowCount = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestISOWeekBounds(t *testing.T) {
	cases := []struct {
		date      string
		wantStart string
		wantEnd   string
	}{
		{"2018-05-01", "2018-04-30", "2018-05-06"},
		{"2018-05-06", "2018-04-30", "2018-05-06"},
		{"2018-05-07", "2018-05-07", "2018-05-13"},
		// ISO week 1 of 2019 starts in December 2018.
		{"2019-01-01", "2018-12-31", "2019-01-06"},
		// 2021-01-03 still belongs to ISO week 53 of 2020.
		{"2021-01-03", "2020-12-28", "2021-01-03"},
	}
	for _, tc := range cases {
		date, _ := time.Parse(DayLayout, tc.date)
		start, end := ISOWeekBounds(date.Add(13 * time.Hour))
		if got := FormatDay(start); got != tc.wantStart {
			t.Errorf("ISOWeekBounds(%s) start = %s, want %s", tc.date, got, tc.wantStart)
		}
		if got := FormatDay(end); got != tc.wantEnd {
			t.Errorf("ISOWeekBounds(%s) end = %s, want %s", tc.date, got, tc.wantEnd)
		}
		if start.Weekday() != time.Monday || end.Weekday() != time.Sunday {
			t.Errorf("ISOWeekBounds(%s) returned %s..%s", tc.date, start.Weekday(), end.Weekday())
		}
	}
}

func TestISOWeekStartMatchesGoISOWeek(t *testing.T) {
	day := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3*366; i++ {
		d := day.AddDate(0, 0, i)
		year, week := d.ISOWeek()
		want, _ := ISOWeekBounds(d)
		if got := ISOWeekStart(year, week); !got.Equal(want) {
			t.Fatalf("ISOWeekStart(%d, %d) = %s, want %s", year, week, got, want)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		year      int
		month     time.Month
		wantStart string
		wantEnd   string
	}{
		{2018, time.May, "2018-05-01", "2018-05-31"},
		{2018, time.February, "2018-02-01", "2018-02-28"},
		{2020, time.February, "2020-02-01", "2020-02-29"},
		{2018, time.April, "2018-04-01", "2018-04-30"},
		{2018, time.December, "2018-12-01", "2018-12-31"},
	}
	for _, tc := range cases {
		start, end := MonthBounds(tc.year, tc.month)
		if FormatDay(start) != tc.wantStart || FormatDay(end) != tc.wantEnd {
			t.Errorf("MonthBounds(%d, %s) = %s..%s, want %s..%s", tc.year, tc.month, FormatDay(start), FormatDay(end), tc.wantStart, tc.wantEnd)
		}
	}
}

func TestWireFormat(t *testing.T) {
	ts := time.Date(2018, time.May, 1, 9, 30, 15, 987654321, time.FixedZone("JST", 9*60*60))
	if got := FormatWire(ts); got != "2018-05-01T00:30:15.000Z" {
		t.Fatalf("FormatWire = %s", got)
	}

	for _, raw := range []string{"2018-05-01T00:30:00.000Z", "2018-05-01T09:30:00+09:00", "2018-05-01T00:30:00Z"} {
		parsed, err := ParseWire(raw)
		if err != nil {
			t.Fatalf("ParseWire(%q) error: %v", raw, err)
		}
		if FormatWire(parsed) != "2018-05-01T00:30:00.000Z" {
			t.Fatalf("ParseWire(%q) = %s", raw, FormatWire(parsed))
		}
	}
	if _, err := ParseWire("yesterday"); err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}
