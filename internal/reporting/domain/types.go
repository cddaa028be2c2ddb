package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Business is a restaurant synced from the remote API.
type Business struct {
	ID   string
	Name string
}

// Employee belongs to a business.
type Employee struct {
	ID         string
	BusinessID string
	FirstName  string
	LastName   string
}

// FullName returns "First Last".
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// OrderedItem is one sold line item.
type OrderedItem struct {
	BusinessID string
	EmployeeID string
	Price      decimal.Decimal
	Cost       decimal.Decimal
	Voided     bool
	CreatedAt  time.Time
}

// LaborEntry is one clocked shift. ClockIn < ClockOut is assumed, not validated.
type LaborEntry struct {
	BusinessID string
	EmployeeID string
	ClockIn    time.Time
	ClockOut   time.Time
	PayRate    decimal.Decimal
}

// EndBound selects whether a range filter includes its upper boundary.
type EndBound int

const (
	// EndExclusive matches created_at < end.
	EndExclusive EndBound = iota
	// EndInclusive matches created_at <= end.
	EndInclusive
)

// ReportType is the closed set of generated metrics.
type ReportType string

const (
	ReportEGS ReportType = "EGS"
	ReportFCP ReportType = "FCP"
	ReportLCP ReportType = "LCP"
)

// ReportTypes lists every report in generation order.
var ReportTypes = []ReportType{ReportEGS, ReportFCP, ReportLCP}

// ParseReportType accepts the report name case-insensitively.
func ParseReportType(value string) (ReportType, error) {
	switch ReportType(strings.ToUpper(strings.TrimSpace(value))) {
	case ReportEGS:
		return ReportEGS, nil
	case ReportFCP:
		return ReportFCP, nil
	case ReportLCP:
		return ReportLCP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReportType, value)
}

// TimeInterval is the rollup bucket granularity.
type TimeInterval string

const (
	IntervalHour  TimeInterval = "hour"
	IntervalDay   TimeInterval = "day"
	IntervalWeek  TimeInterval = "week"
	IntervalMonth TimeInterval = "month"
)

// ParseTimeInterval rejects anything outside hour/day/week/month.
func ParseTimeInterval(value string) (TimeInterval, error) {
	switch TimeInterval(strings.ToLower(strings.TrimSpace(value))) {
	case IntervalHour:
		return IntervalHour, nil
	case IntervalDay:
		return IntervalDay, nil
	case IntervalWeek:
		return IntervalWeek, nil
	case IntervalMonth:
		return IntervalMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidInterval, value)
}

// HourlyFact is one materialised row of a fact collection.
type HourlyFact interface {
	Report() ReportType
}

// EGSFact holds one employee's gross sales for one hour.
type EGSFact struct {
	BusinessID   string
	EmployeeID   string
	EmployeeName string
	Window       Window
	Sales        decimal.Decimal
}

func (EGSFact) Report() ReportType { return ReportEGS }

// FCPFact holds one business's food cost for one hour.
type FCPFact struct {
	BusinessID string
	Window     Window
	Price      decimal.Decimal
	Cost       decimal.Decimal
	FCP        decimal.Decimal
}

func (FCPFact) Report() ReportType { return ReportFCP }

// LCPFact holds one business's labor cost for one hour.
type LCPFact struct {
	BusinessID string
	Window     Window
	LaborCost  decimal.Decimal
	TotalSales decimal.Decimal
	LCP        decimal.Decimal
}

func (LCPFact) Report() ReportType { return ReportLCP }

// RollupQuery describes one metric query.
type RollupQuery struct {
	Report       ReportType
	BusinessID   string
	Start        time.Time
	End          time.Time
	TimeInterval TimeInterval
	Limit        int
	Offset       int
}

// TimeFrame labels a rollup bucket with wire timestamps.
type TimeFrame struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RollupRow is one bucket of a rollup result. Employee is only set for EGS.
type RollupRow struct {
	Employee  string    `json:"employee,omitempty"`
	TimeFrame TimeFrame `json:"timeFrame"`
	Value     float64   `json:"value"`
}

// RollupResult is the response of a metric query.
type RollupResult struct {
	Report       ReportType   `json:"report"`
	TimeInterval TimeInterval `json:"timeInterval"`
	Count        int          `json:"count"`
	Data         []RollupRow  `json:"data"`
}
