package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/application"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// stagedCollection は <target>_staging_<runid> へ書き込み、Commit で renameCollection により本番と入れ替える。
// インデックスは入れ替え前にステージング側へ作る (rename はインデックスを引き継ぐ)。
// 読み手から見えるのは常にインデックス付きの完成したコレクションだけになる。
type stagedCollection struct {
	ops      stagingOps
	name     string
	target   string
	indexes  []mongo.IndexModel
	inserted bool
}

// stagingOps are the store calls a staged write needs.
type stagingOps interface {
	insertMany(ctx context.Context, docs []any) error
	create(ctx context.Context) error
	createIndexes(ctx context.Context, models []mongo.IndexModel) error
	renameOntoTarget(ctx context.Context) error
	drop(ctx context.Context) error
}

func newStagedCollection(db *mongo.Database, target, runID string, indexes []mongo.IndexModel) *stagedCollection {
	name := stagingName(target, runID)
	return &stagedCollection{
		ops:     &mongoStagingOps{db: db, staging: db.Collection(name), target: target},
		name:    name,
		target:  target,
		indexes: indexes,
	}
}

func (s *stagedCollection) insert(ctx context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	if err := s.ops.insertMany(ctx, docs); err != nil {
		return domain.WrapStore("insert "+s.name, err)
	}
	s.inserted = true
	return nil
}

func (s *stagedCollection) commit(ctx context.Context) error {
	if !s.inserted {
		// renameCollection needs an existing source, even for an empty result.
		if err := s.ops.create(ctx); err != nil {
			return domain.WrapStore("create "+s.name, err)
		}
	}
	if len(s.indexes) > 0 {
		if err := s.ops.createIndexes(ctx, s.indexes); err != nil {
			return domain.WrapStore("index "+s.name, err)
		}
	}
	if err := s.ops.renameOntoTarget(ctx); err != nil {
		return domain.WrapStore("rename "+s.name, err)
	}
	return nil
}

func (s *stagedCollection) abort(ctx context.Context) error {
	return domain.WrapStore("drop "+s.name, s.ops.drop(ctx))
}

type mongoStagingOps struct {
	db      *mongo.Database
	staging *mongo.Collection
	target  string
}

func (m *mongoStagingOps) insertMany(ctx context.Context, docs []any) error {
	_, err := m.staging.InsertMany(ctx, docs)
	return err
}

func (m *mongoStagingOps) create(ctx context.Context) error {
	return m.db.CreateCollection(ctx, m.staging.Name())
}

func (m *mongoStagingOps) createIndexes(ctx context.Context, models []mongo.IndexModel) error {
	_, err := m.staging.Indexes().CreateMany(ctx, models)
	return err
}

func (m *mongoStagingOps) renameOntoTarget(ctx context.Context) error {
	return m.db.Client().Database("admin").RunCommand(ctx, renameCommand(m.db.Name(), m.staging.Name(), m.target)).Err()
}

func (m *mongoStagingOps) drop(ctx context.Context) error {
	return m.staging.Drop(ctx)
}

func renameCommand(database, from, to string) bson.D {
	return bson.D{
		{Key: "renameCollection", Value: database + "." + from},
		{Key: "to", Value: database + "." + to},
		{Key: "dropTarget", Value: true},
	}
}

// FactStore implements application.FactStore with staged fact collections.
type FactStore struct {
	db    *mongo.Database
	names Collections
}

// NewFactStore creates a fact writer for the report collections in names.
func NewFactStore(db *mongo.Database, names Collections) *FactStore {
	return &FactStore{db: db, names: names}
}

var _ application.FactStore = (*FactStore)(nil)

// Stage opens a fresh staging collection for report.
func (s *FactStore) Stage(_ context.Context, report domain.ReportType, runID string) (application.FactStage, error) {
	target, err := s.names.Fact(report)
	if err != nil {
		return nil, err
	}
	return &factStage{staged: newStagedCollection(s.db, target, runID, factIndexModels())}, nil
}

type factStage struct {
	staged *stagedCollection
}

func (s *factStage) Insert(ctx context.Context, facts []domain.HourlyFact) error {
	docs := make([]any, 0, len(facts))
	for _, fact := range facts {
		doc, err := factDocument(fact)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	return s.staged.insert(ctx, docs)
}

func (s *factStage) Commit(ctx context.Context) error {
	return s.staged.commit(ctx)
}

func (s *factStage) Abort(ctx context.Context) error {
	return s.staged.abort(ctx)
}

// RawStore implements application.RawStore for the sync connector.
type RawStore struct {
	db    *mongo.Database
	names Collections
}

// NewRawStore creates a raw document writer.
func NewRawStore(db *mongo.Database, names Collections) *RawStore {
	return &RawStore{db: db, names: names}
}

var _ application.RawStore = (*RawStore)(nil)

// StageResource opens a staging collection for one synced resource.
func (s *RawStore) StageResource(_ context.Context, resource, runID string) (application.RawStage, error) {
	models := rawIndexModels(s.names)[s.names.Raw(resource)]
	return &rawStage{staged: newStagedCollection(s.db, s.names.Raw(resource), runID, models)}, nil
}

type rawStage struct {
	staged *stagedCollection
}

func (s *rawStage) Insert(ctx context.Context, docs []map[string]any) error {
	values := make([]any, 0, len(docs))
	for _, doc := range docs {
		values = append(values, bson.M(doc))
	}
	return s.staged.insert(ctx, values)
}

func (s *rawStage) Commit(ctx context.Context) error {
	return s.staged.commit(ctx)
}

func (s *rawStage) Abort(ctx context.Context) error {
	return s.staged.abort(ctx)
}
