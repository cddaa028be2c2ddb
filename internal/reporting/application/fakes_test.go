package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func ts(value string) time.Time {
	t, err := domain.ParseWire(value)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// fakeReader applies the same filters as the Mongo reader over in-memory slices.
type fakeReader struct {
	businesses []domain.Business
	employees  []domain.Employee
	items      []domain.OrderedItem
	shifts     []domain.LaborEntry
	failAfter  int
	calls      int
}

var errStoreDown = errors.New("connection refused")

func (f *fakeReader) tick() error {
	f.calls++
	if f.failAfter > 0 && f.calls > f.failAfter {
		return domain.WrapStore("aggregate", errStoreDown)
	}
	return nil
}

func (f *fakeReader) Businesses(context.Context) ([]domain.Business, error) {
	return f.businesses, f.tick()
}

func (f *fakeReader) Employees(_ context.Context, businessID string) ([]domain.Employee, error) {
	var out []domain.Employee
	for _, e := range f.employees {
		if e.BusinessID == businessID {
			out = append(out, e)
		}
	}
	return out, f.tick()
}

func (f *fakeReader) matchItem(item domain.OrderedItem, businessID, employeeID string, w domain.Window, bound domain.EndBound) bool {
	if item.BusinessID != businessID || item.Voided {
		return false
	}
	if employeeID != "" && item.EmployeeID != employeeID {
		return false
	}
	if item.CreatedAt.Before(w.Start) {
		return false
	}
	if bound == domain.EndInclusive {
		return !item.CreatedAt.After(w.End)
	}
	return item.CreatedAt.Before(w.End)
}

func (f *fakeReader) SumSales(_ context.Context, q SalesQuery) (decimal.Decimal, error) {
	if err := f.tick(); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range f.items {
		if f.matchItem(item, q.BusinessID, q.EmployeeID, q.Window, q.Bound) {
			total = total.Add(item.Price)
		}
	}
	return total, nil
}

func (f *fakeReader) SumPriceAndCost(_ context.Context, businessID string, w domain.Window) (decimal.Decimal, decimal.Decimal, error) {
	if err := f.tick(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	price, cost := decimal.Zero, decimal.Zero
	for _, item := range f.items {
		if f.matchItem(item, businessID, "", w, domain.EndExclusive) {
			price = price.Add(item.Price)
			cost = cost.Add(item.Cost)
		}
	}
	return price, cost, nil
}

func (f *fakeReader) ShiftsOverlapping(_ context.Context, businessID string, w domain.Window) ([]domain.LaborEntry, error) {
	if err := f.tick(); err != nil {
		return nil, err
	}
	var out []domain.LaborEntry
	s, e := w.Start, w.End
	for _, sh := range f.shifts {
		if sh.BusinessID != businessID {
			continue
		}
		in, o := sh.ClockIn, sh.ClockOut
		inWindow := !in.Before(s) && in.Before(e)
		if (inWindow && !o.After(e)) || (inWindow && o.After(e)) || (in.Before(s) && o.After(s) && !o.After(e)) || (in.Before(s) && o.After(e)) {
			out = append(out, sh)
		}
	}
	return out, nil
}

// memoryFacts is a FactStore and a RollupRepository over in-memory collections.
type memoryFacts struct {
	mu        sync.Mutex
	live      map[domain.ReportType][]domain.HourlyFact
	staged    map[string][]domain.HourlyFact
	aborted   []string
	failStage bool
	counts    int
	rowsCalls int
}

func newMemoryFacts() *memoryFacts {
	return &memoryFacts{live: map[domain.ReportType][]domain.HourlyFact{}, staged: map[string][]domain.HourlyFact{}}
}

func (m *memoryFacts) Stage(_ context.Context, report domain.ReportType, runID string) (FactStage, error) {
	if m.failStage {
		return nil, domain.WrapStore("stage", errStoreDown)
	}
	name := string(report) + "_staging_" + runID
	m.mu.Lock()
	m.staged[name] = nil
	m.mu.Unlock()
	return &memoryStage{m: m, report: report, name: name}, nil
}

type memoryStage struct {
	m      *memoryFacts
	report domain.ReportType
	name   string
}

func (s *memoryStage) Insert(_ context.Context, facts []domain.HourlyFact) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.staged[s.name] = append(s.m.staged[s.name], facts...)
	return nil
}

func (s *memoryStage) Commit(context.Context) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.live[s.report] = s.m.staged[s.name]
	delete(s.m.staged, s.name)
	return nil
}

func (s *memoryStage) Abort(context.Context) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.staged, s.name)
	s.m.aborted = append(s.m.aborted, s.name)
	return nil
}

type factRow struct {
	businessID   string
	employeeID   string
	employeeName string
	start, end   string
	day          string
	values       map[string]float64
}

func toFactRow(f domain.HourlyFact) factRow {
	switch v := f.(type) {
	case domain.EGSFact:
		return factRow{v.BusinessID, v.EmployeeID, v.EmployeeName, domain.FormatWire(v.Window.Start), domain.FormatWire(v.Window.End), domain.FormatDay(v.Window.Start),
			map[string]float64{"sales": v.Sales.InexactFloat64()}}
	case domain.FCPFact:
		return factRow{v.BusinessID, "", "", domain.FormatWire(v.Window.Start), domain.FormatWire(v.Window.End), domain.FormatDay(v.Window.Start),
			map[string]float64{"price": v.Price.InexactFloat64(), "cost": v.Cost.InexactFloat64(), "fcp": v.FCP.InexactFloat64()}}
	case domain.LCPFact:
		return factRow{v.BusinessID, "", "", domain.FormatWire(v.Window.Start), domain.FormatWire(v.Window.End), domain.FormatDay(v.Window.Start),
			map[string]float64{"laborCost": v.LaborCost.InexactFloat64(), "totalSales": v.TotalSales.InexactFloat64(), "lcp": v.LCP.InexactFloat64()}}
	}
	panic("unknown fact")
}

func (m *memoryFacts) evaluate(report domain.ReportType, p Pipeline) []GroupRow {
	m.mu.Lock()
	facts := append([]domain.HourlyFact(nil), m.live[report]...)
	m.mu.Unlock()

	var rows []GroupRow
	index := map[string]int{}
	for _, f := range facts {
		r := toFactRow(f)
		if r.businessID != p.Match.BusinessID || r.start < p.Match.Start || r.end > p.Match.End {
			continue
		}
		day, _ := time.Parse(domain.DayLayout, r.day)
		isoYear, isoWeek := day.ISOWeek()
		row := GroupRow{
			Start: r.start, End: r.end, Day: r.day,
			ISOYear: isoYear, ISOWeek: isoWeek, Year: day.Year(), Month: int(day.Month()),
			EmployeeID: r.employeeID, EmployeeName: r.employeeName,
			Values: map[string]float64{},
		}
		if !p.Grouped() {
			for _, field := range p.Fields {
				row.Values[field] = r.values[field]
			}
			rows = append(rows, row)
			continue
		}

		var parts []string
		for _, k := range p.Keys {
			switch k {
			case KeyDay:
				parts = append(parts, row.Day)
			case KeyISOYear, KeyISOWeek:
				parts = append(parts, fmt.Sprintf("%d-W%02d", isoYear, isoWeek))
			case KeyYear, KeyMonth:
				parts = append(parts, day.Format("2006-01"))
			case KeyEmployee:
				parts = append(parts, row.EmployeeID)
			}
		}
		key := strings.Join(parts, "|")
		i, ok := index[key]
		if !ok {
			row.Start, row.End = "", ""
			rows = append(rows, row)
			i = len(rows) - 1
			index[key] = i
		}
		for _, field := range p.Sums {
			rows[i].Values[field] += r.values[field]
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !p.Grouped() {
			if a.Start != b.Start {
				return a.Start < b.Start
			}
			return a.EmployeeID < b.EmployeeID
		}
		for _, k := range p.Keys {
			switch k {
			case KeyDay:
				if a.Day != b.Day {
					return a.Day < b.Day
				}
			case KeyISOYear:
				if a.ISOYear != b.ISOYear {
					return a.ISOYear < b.ISOYear
				}
			case KeyISOWeek:
				if a.ISOWeek != b.ISOWeek {
					return a.ISOWeek < b.ISOWeek
				}
			case KeyYear:
				if a.Year != b.Year {
					return a.Year < b.Year
				}
			case KeyMonth:
				if a.Month != b.Month {
					return a.Month < b.Month
				}
			case KeyEmployee:
				if a.EmployeeID != b.EmployeeID {
					return a.EmployeeID < b.EmployeeID
				}
			}
		}
		return false
	})
	return rows
}

func (m *memoryFacts) Count(_ context.Context, report domain.ReportType, p Pipeline) (int, error) {
	m.counts++
	return len(m.evaluate(report, p)), nil
}

func (m *memoryFacts) Rows(_ context.Context, report domain.ReportType, p Pipeline) ([]GroupRow, error) {
	m.rowsCalls++
	rows := m.evaluate(report, p)
	if p.Skip >= len(rows) {
		return nil, nil
	}
	rows = rows[p.Skip:]
	if p.Limit > 0 && p.Limit < len(rows) {
		rows = rows[:p.Limit]
	}
	return rows, nil
}

type fakeLocker struct {
	held       map[string]bool
	released   []string
	refreshes  int
	refreshErr error
}

func (l *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration) (RunLock, error) {
	if l.held[key] {
		return nil, domain.ErrRunInProgress
	}
	return &fakeLock{l: l, key: key}, nil
}

type fakeLock struct {
	l   *fakeLocker
	key string
}

func (f *fakeLock) Refresh(context.Context, time.Duration) error {
	f.l.refreshes++
	return f.l.refreshErr
}

func (f *fakeLock) Release(context.Context) error {
	f.l.released = append(f.l.released, f.key)
	return nil
}

type fakeCache struct {
	results     map[string]domain.RollupResult
	generations map[domain.ReportType]int64
	invalidated []domain.ReportType
}

func cacheKey(q domain.RollupQuery, gen int64) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s|%d|%d", gen, q.Report, q.BusinessID, domain.FormatWire(q.Start), domain.FormatWire(q.End), q.TimeInterval, q.Limit, q.Offset)
}

func (c *fakeCache) Generation(_ context.Context, report domain.ReportType) (int64, error) {
	return c.generations[report], nil
}

func (c *fakeCache) Get(_ context.Context, q domain.RollupQuery, gen int64) (*domain.RollupResult, bool, error) {
	r, ok := c.results[cacheKey(q, gen)]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *fakeCache) Set(_ context.Context, q domain.RollupQuery, gen int64, result domain.RollupResult) error {
	if c.generations[q.Report] != gen {
		return nil
	}
	if c.results == nil {
		c.results = map[string]domain.RollupResult{}
	}
	c.results[cacheKey(q, gen)] = result
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, report domain.ReportType) error {
	c.invalidated = append(c.invalidated, report)
	if c.generations == nil {
		c.generations = map[domain.ReportType]int64{}
	}
	c.generations[report]++
	for key, result := range c.results {
		if result.Report == report {
			delete(c.results, key)
		}
	}
	return nil
}
