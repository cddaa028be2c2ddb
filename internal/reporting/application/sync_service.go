package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SyncResources are pulled from the remote API in this order.
var SyncResources = []string{"businesses", "menuItems", "checks", "orderedItems", "employees", "laborEntries"}

// RawSource pages through one remote resource.
type RawSource interface {
	FetchPage(ctx context.Context, resource string, offset, limit int) ([]map[string]any, error)
}

// RawStore stages a fresh copy of a raw collection.
type RawStore interface {
	StageResource(ctx context.Context, resource, runID string) (RawStage, error)
}

// RawStage mirrors FactStage for raw documents.
type RawStage interface {
	Insert(ctx context.Context, docs []map[string]any) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// SyncService replaces the local raw collections with the remote data set.
type SyncService interface {
	Sync(ctx context.Context) (map[string]int, error)
}

// SyncDeps wires a SyncService.
type SyncDeps struct {
	Source   RawSource
	Store    RawStore
	Logger   *logrus.Logger
	PageSize int
}

type syncService struct {
	source   RawSource
	store    RawStore
	logger   *logrus.Logger
	pageSize int
}

// NewSyncService creates the remote data-sync connector.
func NewSyncService(deps SyncDeps) SyncService {
	s := &syncService{source: deps.Source, store: deps.Store, logger: deps.Logger, pageSize: deps.PageSize}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.pageSize <= 0 {
		s.pageSize = 500
	}
	return s
}

// Sync pulls every resource and returns the number of documents stored per resource.
func (s *syncService) Sync(ctx context.Context) (map[string]int, error) {
	runID := uuid.NewString()
	counts := make(map[string]int, len(SyncResources))
	for _, resource := range SyncResources {
		n, err := s.syncResource(ctx, resource, runID)
		if err != nil {
			return counts, fmt.Errorf("sync %s: %w", resource, err)
		}
		counts[resource] = n
	}
	return counts, nil
}

// syncResource は offset を進めながら空ページが返るまで取得し、ステージングへ投入してから入れ替える。
func (s *syncService) syncResource(ctx context.Context, resource, runID string) (int, error) {
	log := s.logger.WithFields(logrus.Fields{"resource": resource, "run_id": runID})
	log.Info("synchronizing")
	started := time.Now()

	stage, err := s.store.StageResource(ctx, resource, runID)
	if err != nil {
		return 0, err
	}

	offset := 0
	for {
		page, err := s.source.FetchPage(ctx, resource, offset, s.pageSize)
		if err == nil && len(page) > 0 {
			err = stage.Insert(ctx, page)
		}
		if err != nil {
			if abortErr := stage.Abort(context.Background()); abortErr != nil {
				log.WithError(abortErr).Warn("failed to drop staging collection")
			}
			return offset, err
		}
		if len(page) == 0 {
			break
		}
		offset += len(page)
	}

	if err := stage.Commit(ctx); err != nil {
		if abortErr := stage.Abort(context.Background()); abortErr != nil {
			log.WithError(abortErr).Warn("failed to drop staging collection")
		}
		return offset, err
	}
	log.WithFields(logrus.Fields{"documents": offset, "elapsed": time.Since(started).String()}).Info("synchronized")
	return offset, nil
}
