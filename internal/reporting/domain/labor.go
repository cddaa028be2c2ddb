package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OverlapCase identifies how a labor shift relates to an hour window.
type OverlapCase int

const (
	// ShiftInside: clock-in within [start,end) and clock-out no later than end.
	ShiftInside OverlapCase = iota + 1
	// ShiftRunsPastEnd: clock-in within (start,end) and clock-out after end.
	ShiftRunsPastEnd
	// ShiftStartedBefore: clock-in before start and clock-out within (start,end].
	ShiftStartedBefore
	// ShiftSpansWindow: clock-in before start and clock-out after end.
	ShiftSpansWindow
)

// OverlapContribution is the labor cost one firing case attributes to a window.
type OverlapContribution struct {
	Case  OverlapCase
	Hours int
	Cost  decimal.Decimal
}

// WholeHourComponent returns only the hour digit (0-23) of a duration, the way a calendar
// interval reports it. Minutes are dropped: 45 minutes inside a window yields 0.
func WholeHourComponent(d time.Duration) int {
	if d < 0 {
		d = -d
	}
	return int(d/time.Hour) % 24
}

// ClassifyShift は 4 つの重なり判定をそれぞれ独立に評価する。
// 判定は排他ではなく、複数のケースが同時に成立した場合はその全てを返す。
func ClassifyShift(w Window, shift LaborEntry) []OverlapContribution {
	in, out := shift.ClockIn, shift.ClockOut
	start, end := w.Start, w.End
	var result []OverlapContribution

	add := func(c OverlapCase, d time.Duration) {
		hours := WholeHourComponent(d)
		result = append(result, OverlapContribution{
			Case:  c,
			Hours: hours,
			Cost:  shift.PayRate.Mul(decimal.NewFromInt(int64(hours))),
		})
	}

	if !in.Before(start) && in.Before(end) && !out.After(end) {
		add(ShiftInside, out.Sub(in))
	}
	if in.After(start) && in.Before(end) && out.After(end) {
		add(ShiftRunsPastEnd, end.Sub(in))
	}
	if in.Before(start) && out.After(start) && !out.After(end) {
		add(ShiftStartedBefore, out.Sub(start))
	}
	if in.Before(start) && out.After(end) {
		add(ShiftSpansWindow, end.Sub(start))
	}
	return result
}

// LaborCost sums every firing overlap case of every shift for the window.
func LaborCost(w Window, shifts []LaborEntry) decimal.Decimal {
	total := decimal.Zero
	for _, shift := range shifts {
		for _, c := range ClassifyShift(w, shift) {
			total = total.Add(c.Cost)
		}
	}
	return total
}

// Percentage returns numerator/denominator*100 rounded to two places, or zero for a
// non-positive denominator.
func Percentage(numerator, denominator decimal.Decimal) decimal.Decimal {
	if !denominator.IsPositive() {
		return decimal.Zero
	}
	return numerator.Div(denominator).Mul(decimal.NewFromInt(100)).Round(2)
}
