package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// SalesQuery filters non-voided ordered items. An empty EmployeeID matches every employee.
type SalesQuery struct {
	BusinessID string
	EmployeeID string
	Window     domain.Window
	Bound      domain.EndBound
}

// FactReader は同期済みの生データ (businesses / employees / orderedItems / laborEntries) を読み取るポート。
// 該当行が無い集計はエラーではなくゼロを返す。
type FactReader interface {
	Businesses(ctx context.Context) ([]domain.Business, error)
	Employees(ctx context.Context, businessID string) ([]domain.Employee, error)
	SumSales(ctx context.Context, q SalesQuery) (decimal.Decimal, error)
	SumPriceAndCost(ctx context.Context, businessID string, w domain.Window) (price, cost decimal.Decimal, err error)
	ShiftsOverlapping(ctx context.Context, businessID string, w domain.Window) ([]domain.LaborEntry, error)
}

// FactStore stages a fresh copy of a report's fact collection.
type FactStore interface {
	Stage(ctx context.Context, report domain.ReportType, runID string) (FactStage, error)
}

// FactStage accumulates facts out of sight of readers until Commit swaps them in.
type FactStage interface {
	Insert(ctx context.Context, facts []domain.HourlyFact) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// RunLocker serialises generation runs of the same report across processes.
// Obtain returns domain.ErrRunInProgress when the lock is held elsewhere.
type RunLocker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (RunLock, error)
}

// RunLock is a held generation lock. Long runs extend it with Refresh before the TTL runs out.
type RunLock interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// ResultCache caches rollup results per query and report generation. Invalidate moves the
// report to a new generation; entries tagged with an older one are never returned.
type ResultCache interface {
	Generation(ctx context.Context, report domain.ReportType) (int64, error)
	Get(ctx context.Context, q domain.RollupQuery, gen int64) (*domain.RollupResult, bool, error)
	Set(ctx context.Context, q domain.RollupQuery, gen int64, result domain.RollupResult) error
	Invalidate(ctx context.Context, report domain.ReportType) error
}

// Metrics records generation and query observations.
type Metrics interface {
	WindowsProcessed(report domain.ReportType, n int)
	FactsWritten(report domain.ReportType, n int)
	RunFinished(report domain.ReportType, result string, elapsed time.Duration)
	QueryServed(report domain.ReportType, interval domain.TimeInterval, result string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) WindowsProcessed(domain.ReportType, int)                                  {}
func (noopMetrics) FactsWritten(domain.ReportType, int)                                      {}
func (noopMetrics) RunFinished(domain.ReportType, string, time.Duration)                     {}
func (noopMetrics) QueryServed(domain.ReportType, domain.TimeInterval, string, time.Duration) {}
