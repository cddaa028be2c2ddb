package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// RollupRepository executes Pipelines over a report's fact collection.
type RollupRepository interface {
	Count(ctx context.Context, report domain.ReportType, p Pipeline) (int, error)
	Rows(ctx context.Context, report domain.ReportType, p Pipeline) ([]GroupRow, error)
}

// ReportQueryService answers metric queries from the materialised hourly facts.
type ReportQueryService interface {
	Find(ctx context.Context, q domain.RollupQuery) (domain.RollupResult, error)
}

// ReportQueryDeps wires a ReportQueryService. Cache and Metrics are optional.
type ReportQueryDeps struct {
	Repo    RollupRepository
	Cache   ResultCache
	Metrics Metrics
	Logger  *logrus.Logger
}

type reportQueryService struct {
	repo    RollupRepository
	cache   ResultCache
	metrics Metrics
	logger  *logrus.Logger
}

// NewReportQueryService creates the rollup engine.
func NewReportQueryService(deps ReportQueryDeps) ReportQueryService {
	s := &reportQueryService{repo: deps.Repo, cache: deps.Cache, metrics: deps.Metrics, logger: deps.Logger}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	return s
}

// Find は件数取得用とページング用の 2 本のパイプラインを実行し、バケットのラベル付けと値の再計算を行う。
func (s *reportQueryService) Find(ctx context.Context, q domain.RollupQuery) (domain.RollupResult, error) {
	started := time.Now()
	result, err := s.find(ctx, q)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.QueryServed(q.Report, q.TimeInterval, outcome, time.Since(started))
	return result, err
}

func (s *reportQueryService) find(ctx context.Context, q domain.RollupQuery) (domain.RollupResult, error) {
	spec, err := metricSpecFor(q.Report)
	if err != nil {
		return domain.RollupResult{}, err
	}
	base, err := buildPipeline(q, spec)
	if err != nil {
		return domain.RollupResult{}, err
	}
	if err := validateQuery(q); err != nil {
		return domain.RollupResult{}, err
	}

	log := s.logger.WithFields(logrus.Fields{"report": q.Report, "business_id": q.BusinessID, "interval": q.TimeInterval})
	// 世代番号は Count より前に読む。途中で再生成が走った結果は古い世代で書かれ、以後読まれない。
	cache := s.cache
	var gen int64
	if cache != nil {
		g, err := cache.Generation(ctx, q.Report)
		if err != nil {
			log.WithError(err).Warn("result cache generation read failed")
			cache = nil
		} else {
			gen = g
		}
	}
	if cache != nil {
		cached, ok, err := cache.Get(ctx, q, gen)
		if err != nil {
			log.WithError(err).Warn("result cache read failed")
		} else if ok {
			return *cached, nil
		}
	}

	count, err := s.repo.Count(ctx, q.Report, base.WithCount())
	if err != nil {
		return domain.RollupResult{}, err
	}
	rows, err := s.repo.Rows(ctx, q.Report, base.WithPage(q.Offset, q.Limit))
	if err != nil {
		return domain.RollupResult{}, err
	}

	result := domain.RollupResult{
		Report:       q.Report,
		TimeInterval: q.TimeInterval,
		Count:        count,
		Data:         make([]domain.RollupRow, 0, len(rows)),
	}
	for _, row := range rows {
		shaped, err := shapeRow(q.TimeInterval, spec, row)
		if err != nil {
			return domain.RollupResult{}, err
		}
		result.Data = append(result.Data, shaped)
	}

	if cache != nil {
		if err := cache.Set(ctx, q, gen, result); err != nil {
			log.WithError(err).Warn("result cache write failed")
		}
	}
	return result, nil
}

func validateQuery(q domain.RollupQuery) error {
	var problems []string
	if strings.TrimSpace(q.BusinessID) == "" {
		problems = append(problems, "business id is required")
	}
	if q.Start.IsZero() || q.End.IsZero() {
		problems = append(problems, "start and end are required")
	} else if q.End.Before(q.Start) {
		problems = append(problems, "end is before start")
	}
	if q.Limit < 1 {
		problems = append(problems, "limit must be positive")
	}
	if q.Offset < 0 {
		problems = append(problems, "offset must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidParams, strings.Join(problems, ", "))
	}
	return nil
}

// shapeRow labels a bucket with its calendar bounds and computes its value.
func shapeRow(interval domain.TimeInterval, spec metricSpec, row GroupRow) (domain.RollupRow, error) {
	out := domain.RollupRow{}
	if spec.perEmployee {
		out.Employee = row.EmployeeName
	}

	var start, end time.Time
	switch interval {
	case domain.IntervalHour:
		out.TimeFrame = domain.TimeFrame{Start: row.Start, End: row.End}
		out.Value = row.Values[spec.hourField]
		return out, nil
	case domain.IntervalDay:
		day, err := time.Parse(domain.DayLayout, row.Day)
		if err != nil {
			return out, fmt.Errorf("bucket day %q: %w", row.Day, err)
		}
		start, end = day, day.Add(24*time.Hour)
	case domain.IntervalWeek:
		start, end = domain.ISOWeekBounds(domain.ISOWeekStart(row.ISOYear, row.ISOWeek))
	case domain.IntervalMonth:
		start, end = domain.MonthBounds(row.Year, time.Month(row.Month))
	default:
		return out, fmt.Errorf("%w: %q", domain.ErrInvalidInterval, interval)
	}

	out.TimeFrame = domain.TimeFrame{Start: domain.FormatWire(start), End: domain.FormatWire(end)}
	out.Value = spec.value(row.Values)
	return out, nil
}
