package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

const progressEvery = 24

// Generator rebuilds one report's hourly fact collection from raw facts.
type Generator interface {
	Report() domain.ReportType
	Generate(ctx context.Context) (RunStats, error)
}

// RunStats summarises a finished generation run.
type RunStats struct {
	RunID   string
	Report  domain.ReportType
	Windows int
	Facts   int
	Elapsed time.Duration
}

// GeneratorDeps are shared by every generator.
type GeneratorDeps struct {
	Reader    FactReader
	Store     FactStore
	Locker    RunLocker
	Cache     ResultCache
	Metrics   Metrics
	Logger    *logrus.Logger
	Now       func() time.Time
	BatchSize int
	LockTTL   time.Duration
}

// producer walks the raw facts of one report and emits one fact per window.
type producer interface {
	report() domain.ReportType
	produce(ctx context.Context, run *run) error
}

type generator struct {
	deps GeneratorDeps
	p    producer
}

func newGenerator(deps GeneratorDeps, p producer) *generator {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = 500
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = 2 * time.Hour
	}
	return &generator{deps: deps, p: p}
}

func (g *generator) Report() domain.ReportType {
	return g.p.report()
}

// Generate はステージング用コレクションへ全期間の hourly fact を書き込み、最後に本番コレクションと入れ替える。
// 途中で失敗した場合はステージングを破棄し、既存の本番コレクションはそのまま残る。
func (g *generator) Generate(ctx context.Context) (RunStats, error) {
	report := g.p.report()
	stats := RunStats{RunID: uuid.NewString(), Report: report}
	started := time.Now()
	log := g.deps.Logger.WithFields(logrus.Fields{"report": report, "run_id": stats.RunID})

	var lock RunLock
	if g.deps.Locker != nil {
		l, err := g.deps.Locker.Obtain(ctx, "generate:"+string(report), g.deps.LockTTL)
		if err != nil {
			g.deps.Metrics.RunFinished(report, "locked", time.Since(started))
			return stats, err
		}
		lock = l
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				log.WithError(err).Warn("failed to release generation lock")
			}
		}()
	}

	stage, err := g.deps.Store.Stage(ctx, report, stats.RunID)
	if err != nil {
		g.deps.Metrics.RunFinished(report, "error", time.Since(started))
		return stats, err
	}

	r := &run{
		log:     log,
		stage:   stage,
		batch:   make([]domain.HourlyFact, 0, g.deps.BatchSize),
		size:    g.deps.BatchSize,
		now:     g.deps.Now().UTC(),
		metrics: g.deps.Metrics,
		report:  report,
		lock:    lock,
		lockTTL: g.deps.LockTTL,
	}

	log.Info("generation started")
	err = g.p.produce(ctx, r)
	if err == nil {
		err = r.flush(ctx)
	}
	if err == nil {
		err = stage.Commit(ctx)
	}

	stats.Windows, stats.Facts, stats.Elapsed = r.windows, r.facts, time.Since(started)
	if err != nil {
		entry := log.WithError(err)
		if r.last != nil {
			entry = entry.WithField("window", domain.FormatWire(r.last.Start))
		}
		entry.Error("generation halted")
		if abortErr := stage.Abort(context.Background()); abortErr != nil {
			log.WithError(abortErr).Warn("failed to drop staging collection")
		}
		g.deps.Metrics.RunFinished(report, "error", stats.Elapsed)
		return stats, fmt.Errorf("generate %s: %w", report, err)
	}

	if g.deps.Cache != nil {
		if err := g.deps.Cache.Invalidate(ctx, report); err != nil {
			log.WithError(err).Warn("failed to invalidate cached results")
		}
	}
	g.deps.Metrics.RunFinished(report, "ok", stats.Elapsed)
	log.WithFields(logrus.Fields{"windows": stats.Windows, "facts": stats.Facts, "elapsed": stats.Elapsed.String()}).Info("generation finished")
	return stats, nil
}

// run holds the mutable state of one Generate call.
type run struct {
	log     *logrus.Entry
	stage   FactStage
	batch   []domain.HourlyFact
	size    int
	now     time.Time
	metrics Metrics
	report  domain.ReportType
	lock    RunLock
	lockTTL time.Duration
	windows int
	facts   int
	last    *domain.Window
}

func (r *run) windowsFor(ctx context.Context, entry *logrus.Entry, visit func(i int, w domain.Window) error) error {
	i := 0
	for w := range domain.HourWindows(domain.Epoch, r.now) {
		if i%progressEvery == 0 {
			entry.WithField("window", domain.FormatWire(w.Start)).Info("progress")
			if i > 0 && r.lock != nil {
				if err := r.lock.Refresh(ctx, r.lockTTL); err != nil {
					return fmt.Errorf("refresh generation lock: %w", err)
				}
			}
		}
		current := w
		r.last = &current
		if err := visit(i, w); err != nil {
			return err
		}
		i++
		r.windows++
		r.metrics.WindowsProcessed(r.report, 1)
	}
	return nil
}

func (r *run) emit(ctx context.Context, fact domain.HourlyFact) error {
	r.batch = append(r.batch, fact)
	if len(r.batch) >= r.size {
		return r.flush(ctx)
	}
	return nil
}

func (r *run) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := r.stage.Insert(ctx, r.batch); err != nil {
		return err
	}
	r.facts += len(r.batch)
	r.metrics.FactsWritten(r.report, len(r.batch))
	r.batch = r.batch[:0]
	return nil
}

// IsRunInProgress reports whether err came from a held generation lock.
func IsRunInProgress(err error) bool {
	return errors.Is(err, domain.ErrRunInProgress)
}
