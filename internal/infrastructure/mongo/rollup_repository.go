package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/application"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// RollupRepository implements application.RollupRepository by rendering pipelines to aggregation stages.
type RollupRepository struct {
	db    *mongo.Database
	names Collections
}

// NewRollupRepository creates a repository over the live fact collections.
func NewRollupRepository(db *mongo.Database, names Collections) *RollupRepository {
	return &RollupRepository{db: db, names: names}
}

var _ application.RollupRepository = (*RollupRepository)(nil)

// Count returns the number of buckets the pipeline yields before paging.
func (r *RollupRepository) Count(ctx context.Context, report domain.ReportType, p application.Pipeline) (int, error) {
	collection, err := r.collection(report)
	if err != nil {
		return 0, err
	}
	cursor, err := collection.Aggregate(ctx, renderPipeline(p.WithCount()))
	if err != nil {
		return 0, domain.WrapStore("count "+collection.Name(), err)
	}
	defer cursor.Close(ctx)

	var total totalDocument
	if cursor.Next(ctx) {
		if err := cursor.Decode(&total); err != nil {
			return 0, domain.WrapStore("decode count", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, domain.WrapStore("count "+collection.Name(), err)
	}
	return total.Total, nil
}

// Rows returns one page of buckets.
func (r *RollupRepository) Rows(ctx context.Context, report domain.ReportType, p application.Pipeline) ([]application.GroupRow, error) {
	collection, err := r.collection(report)
	if err != nil {
		return nil, err
	}
	cursor, err := collection.Aggregate(ctx, renderPipeline(p))
	if err != nil {
		return nil, domain.WrapStore("aggregate "+collection.Name(), err)
	}
	defer cursor.Close(ctx)

	rows := make([]application.GroupRow, 0)
	for cursor.Next(ctx) {
		var doc groupRowDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.WrapStore("decode bucket", err)
		}
		rows = append(rows, application.GroupRow{
			Start:        doc.Start,
			End:          doc.End,
			Day:          doc.Day,
			ISOYear:      doc.ISOYear,
			ISOWeek:      doc.ISOWeek,
			Year:         doc.Year,
			Month:        doc.Month,
			EmployeeID:   doc.EmployeeID,
			EmployeeName: doc.EmployeeName,
			Values:       doc.Values,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.WrapStore("aggregate "+collection.Name(), err)
	}
	return rows, nil
}

func (r *RollupRepository) collection(report domain.ReportType) (*mongo.Collection, error) {
	name, err := r.names.Fact(report)
	if err != nil {
		return nil, err
	}
	return r.db.Collection(name), nil
}

// renderPipeline は型付きの Pipeline を MongoDB の集計ステージへ変換する。
// 時間粒度ではそのまま並べ、日/週/月では day 文字列から暦のキーを導出してグループ化する。
func renderPipeline(p application.Pipeline) mongo.Pipeline {
	stages := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"business_id": p.Match.BusinessID,
			"start":       bson.M{"$gte": p.Match.Start},
			"end":         bson.M{"$lte": p.Match.End},
		}}},
	}

	if p.Grouped() {
		stages = append(stages,
			bson.D{{Key: "$sort", Value: bson.D{{Key: "start", Value: 1}}}},
			bson.D{{Key: "$addFields", Value: calendarFields()}},
			bson.D{{Key: "$group", Value: groupStage(p)}},
			bson.D{{Key: "$sort", Value: groupSort(p.Keys)}},
		)
	} else {
		stages = append(stages, bson.D{{Key: "$sort", Value: bson.D{{Key: "start", Value: 1}, {Key: "employee_id", Value: 1}}}})
	}

	if p.Count {
		return append(stages, bson.D{{Key: "$count", Value: "total"}})
	}
	if p.Skip > 0 {
		stages = append(stages, bson.D{{Key: "$skip", Value: int64(p.Skip)}})
	}
	if p.Limit > 0 {
		stages = append(stages, bson.D{{Key: "$limit", Value: int64(p.Limit)}})
	}
	return append(stages, bson.D{{Key: "$project", Value: projectStage(p)}})
}

func calendarFields() bson.D {
	date := bson.M{"$dateFromString": bson.M{"dateString": "$day", "format": "%Y-%m-%d"}}
	return bson.D{
		{Key: string(application.KeyISOYear), Value: bson.M{"$isoWeekYear": date}},
		{Key: string(application.KeyISOWeek), Value: bson.M{"$isoWeek": date}},
		{Key: string(application.KeyYear), Value: bson.M{"$year": date}},
		{Key: string(application.KeyMonth), Value: bson.M{"$month": date}},
	}
}

func groupStage(p application.Pipeline) bson.D {
	id := bson.D{}
	for _, key := range p.Keys {
		id = append(id, bson.E{Key: string(key), Value: "$" + string(key)})
	}
	group := bson.D{{Key: "_id", Value: id}}
	for _, field := range p.Sums {
		group = append(group, bson.E{Key: field, Value: bson.M{"$sum": "$" + field}})
	}
	for _, field := range p.Carry {
		group = append(group, bson.E{Key: field, Value: bson.M{"$first": "$" + field}})
	}
	return group
}

func groupSort(keys []application.GroupKey) bson.D {
	sort := bson.D{}
	for _, key := range keys {
		sort = append(sort, bson.E{Key: "_id." + string(key), Value: 1})
	}
	return sort
}

func projectStage(p application.Pipeline) bson.D {
	project := bson.D{{Key: "_id", Value: 0}}
	values := bson.D{}

	if !p.Grouped() {
		project = append(project,
			bson.E{Key: "start", Value: 1},
			bson.E{Key: "end", Value: 1},
			bson.E{Key: "day", Value: 1},
			bson.E{Key: "employee_id", Value: 1},
		)
		for _, field := range p.Fields {
			values = append(values, bson.E{Key: field, Value: "$" + field})
		}
	} else {
		for _, key := range p.Keys {
			project = append(project, bson.E{Key: string(key), Value: "$_id." + string(key)})
		}
		for _, field := range p.Sums {
			values = append(values, bson.E{Key: field, Value: "$" + field})
		}
	}
	for _, field := range p.Carry {
		project = append(project, bson.E{Key: field, Value: 1})
	}
	return append(project, bson.E{Key: "values", Value: values})
}
