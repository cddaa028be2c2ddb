package domain

import (
	"iter"
	"strings"
	"time"
)

const (
	// WireLayout は API とドキュメントで共通のタイムスタンプ表現 (ミリ秒は常に 000, UTC の Z 固定)。
	WireLayout = "2006-01-02T15:04:05.000Z"
	// DayLayout は hourly fact の day フィールドの表現。
	DayLayout = "2006-01-02"
)

// Epoch is the first hour covered by generated facts. The synced data set does not go back further.
var Epoch = time.Date(2018, time.May, 1, 0, 0, 0, 0, time.UTC)

// Window is a half-open [Start, End) interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// FormatWire formats t as a UTC wire timestamp. Sub-second precision is dropped so the
// millisecond field is always 000.
func FormatWire(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(WireLayout)
}

// FormatDay returns the UTC calendar date of t.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseWire parses a wire timestamp. RFC3339 variants and bare dates are accepted as well,
// since the synced data and query parameters are not always millisecond-formatted.
func ParseWire(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(WireLayout, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(DayLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// WindowCount returns ceil((now - epoch) / 1h), or 0 when now is not after epoch.
func WindowCount(epoch, now time.Time) int {
	if !now.After(epoch) {
		return 0
	}
	elapsed := now.Sub(epoch)
	n := int(elapsed / time.Hour)
	if elapsed%time.Hour != 0 {
		n++
	}
	return n
}

// HourWindows は epoch から now までを 1 時間幅で隙間なく敷き詰めたウィンドウ列を返す。
// 返り値は何度 range しても先頭からやり直せる。
func HourWindows(epoch, now time.Time) iter.Seq[Window] {
	epoch = epoch.UTC()
	count := WindowCount(epoch, now)
	return func(yield func(Window) bool) {
		start := epoch
		for i := 0; i < count; i++ {
			end := start.Add(time.Hour)
			if !yield(Window{Start: start, End: end}) {
				return
			}
			start = end
		}
	}
}

// ISOWeekBounds returns Monday 00:00 and Sunday 00:00 of the ISO-8601 week containing date.
func ISOWeekBounds(date time.Time) (time.Time, time.Time) {
	date = date.UTC()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// ISOWeekStart returns Monday 00:00 of the given ISO week. January 4th is always in week 1.
func ISOWeekStart(isoYear, week int) time.Time {
	jan4 := time.Date(isoYear, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekOne, _ := ISOWeekBounds(jan4)
	return weekOne.AddDate(0, 0, (week-1)*7)
}

// MonthBounds returns the first and the last calendar day of the month.
// The last day is "day 0" of the following month, so December rolls over into the next year.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}
