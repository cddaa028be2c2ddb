// Command generate rebuilds the hourly fact collections once and exits.
// Run it from cron (or by hand after a sync) instead of going through POST /admin/generate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/avero-reporting/api/internal/config"
	reportingapp "github.com/sngm3741/avero-reporting/api/internal/reporting/application"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
	"github.com/sngm3741/avero-reporting/api/internal/server"
)

type generateOptions struct {
	sync    bool
	auth    string
	report  string
	timeout time.Duration
}

func main() {
	opts := parseFlags()
	cfg := config.Load()

	if err := execute(cfg, opts); err != nil {
		cfg.Logger.WithError(err).Error("generation failed")
		os.Exit(1)
	}
}

// execute owns every connection so the deferred cleanups run before main exits.
func execute(cfg config.Config, opts generateOptions) error {
	logger := cfg.Logger

	ctx, cancel := runContext(context.Background(), opts.timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Timeout)
	defer connectCancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)))
	if err != nil {
		return fmt.Errorf("MongoDB 接続に失敗しました: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("MongoDB 切断時にエラー")
		}
	}()

	components, err := server.NewComponents(ctx, cfg, client, server.ComponentOptions{AveroAuth: opts.auth})
	if err != nil {
		return fmt.Errorf("コンポーネント初期化に失敗しました: %w", err)
	}
	defer components.Close(logger)

	return run(ctx, logger, components, opts)
}

// runContext applies timeout to parent. Zero or negative means no limit.
func runContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func parseFlags() generateOptions {
	var opts generateOptions
	flag.BoolVar(&opts.sync, "sync", false, "Avero API から raw コレクションを同期してから生成する")
	flag.StringVar(&opts.auth, "auth", "", "Avero API の Authorization ヘッダ (未指定なら AVERO_API_KEY)")
	flag.StringVar(&opts.report, "report", "", "生成するレポート (EGS|FCP|LCP)。未指定なら全て")
	flag.DurationVar(&opts.timeout, "timeout", 0, "全体のタイムアウト (0 は無制限)")
	flag.Parse()
	return opts
}

func run(ctx context.Context, logger *logrus.Logger, components *server.Components, opts generateOptions) error {
	var single domain.ReportType
	if opts.report != "" {
		report, err := domain.ParseReportType(opts.report)
		if err != nil {
			return err
		}
		single = report
	}

	if opts.sync {
		if components.Sync == nil {
			return errSyncNotConfigured
		}
		counts, err := components.Sync.Sync(ctx)
		if err != nil {
			return err
		}
		fields := logrus.Fields{}
		for resource, n := range counts {
			fields[resource] = n
		}
		logger.WithFields(fields).Info("sync completed")
	}

	var stats []reportingapp.RunStats
	if single != "" {
		s, err := components.Generation.Generate(ctx, single)
		if err != nil {
			return err
		}
		stats = append(stats, s)
	} else {
		all, err := components.Generation.GenerateAll(ctx)
		if err != nil {
			return err
		}
		stats = all
	}

	for _, s := range stats {
		logger.WithFields(logrus.Fields{
			"report":  s.Report,
			"run_id":  s.RunID,
			"windows": s.Windows,
			"facts":   s.Facts,
			"elapsed": s.Elapsed.String(),
		}).Info("report generated")
	}
	return nil
}
