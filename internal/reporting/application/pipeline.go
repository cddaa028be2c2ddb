package application

import (
	"fmt"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// GroupKey names one component of a rollup bucket key. Keys sort in declaration order.
type GroupKey string

const (
	KeyDay      GroupKey = "day"
	KeyISOYear  GroupKey = "isoYear"
	KeyISOWeek  GroupKey = "isoWeek"
	KeyYear     GroupKey = "year"
	KeyMonth    GroupKey = "month"
	KeyEmployee GroupKey = "employee_id"
)

// Match selects fact rows fully inside [Start, End] for one business. Bounds are wire strings.
type Match struct {
	BusinessID string
	Start      string
	End        string
}

// Pipeline is a store-independent description of a rollup aggregation.
// With no Keys the hourly rows pass through ungrouped, ordered by start.
type Pipeline struct {
	Match  Match
	Keys   []GroupKey
	Sums   []string
	Fields []string
	Carry  []string
	Skip   int
	Limit  int
	Count  bool
}

// Grouped reports whether rows are re-aggregated into coarser buckets.
func (p Pipeline) Grouped() bool {
	return len(p.Keys) > 0
}

// WithCount returns the count-only variant.
func (p Pipeline) WithCount() Pipeline {
	p.Count = true
	p.Skip, p.Limit = 0, 0
	return p
}

// WithPage returns the paginated variant.
func (p Pipeline) WithPage(offset, limit int) Pipeline {
	p.Count = false
	p.Skip, p.Limit = offset, limit
	return p
}

// GroupRow is one output row of a Pipeline, before it is labelled.
type GroupRow struct {
	Start        string
	End          string
	Day          string
	ISOYear      int
	ISOWeek      int
	Year         int
	Month        int
	EmployeeID   string
	EmployeeName string
	Values       map[string]float64
}

// metricSpec describes how a report's fact fields roll up.
type metricSpec struct {
	perEmployee bool
	hourField   string
	sums        []string
	value       func(sums map[string]float64) float64
}

func metricSpecFor(report domain.ReportType) (metricSpec, error) {
	switch report {
	case domain.ReportEGS:
		return metricSpec{
			perEmployee: true,
			hourField:   "sales",
			sums:        []string{"sales"},
			value:       func(s map[string]float64) float64 { return s["sales"] },
		}, nil
	case domain.ReportFCP:
		return metricSpec{
			hourField: "fcp",
			sums:      []string{"price", "cost"},
			value:     func(s map[string]float64) float64 { return ratio(s["cost"], s["price"]) },
		}, nil
	case domain.ReportLCP:
		return metricSpec{
			hourField: "lcp",
			sums:      []string{"laborCost", "totalSales"},
			value:     func(s map[string]float64) float64 { return ratio(s["laborCost"], s["totalSales"]) },
		}, nil
	}
	return metricSpec{}, fmt.Errorf("%w: %q", domain.ErrInvalidReportType, report)
}

// ratio is unrounded; rounding only happens on hourly facts.
func ratio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator * 100
}

func intervalKeys(interval domain.TimeInterval) ([]GroupKey, error) {
	switch interval {
	case domain.IntervalHour:
		return nil, nil
	case domain.IntervalDay:
		return []GroupKey{KeyDay}, nil
	case domain.IntervalWeek:
		return []GroupKey{KeyISOYear, KeyISOWeek}, nil
	case domain.IntervalMonth:
		return []GroupKey{KeyYear, KeyMonth}, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidInterval, interval)
}

// BuildPipeline returns the base pipeline of a query, without count or paging.
func BuildPipeline(q domain.RollupQuery) (Pipeline, error) {
	spec, err := metricSpecFor(q.Report)
	if err != nil {
		return Pipeline{}, err
	}
	return buildPipeline(q, spec)
}

func buildPipeline(q domain.RollupQuery, spec metricSpec) (Pipeline, error) {
	keys, err := intervalKeys(q.TimeInterval)
	if err != nil {
		return Pipeline{}, err
	}

	p := Pipeline{
		Match: Match{
			BusinessID: q.BusinessID,
			Start:      domain.FormatWire(q.Start),
			End:        domain.FormatWire(q.End),
		},
	}
	if spec.perEmployee {
		p.Carry = []string{"employee_name"}
	}
	if len(keys) == 0 {
		p.Fields = []string{spec.hourField}
		return p, nil
	}
	if spec.perEmployee {
		keys = append(keys, KeyEmployee)
	}
	p.Keys = keys
	p.Sums = append([]string(nil), spec.sums...)
	return p, nil
}
