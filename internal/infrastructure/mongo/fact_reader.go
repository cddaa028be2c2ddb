package mongo

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/application"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// FactReader implements application.FactReader over the synced raw collections.
type FactReader struct {
	businesses   *mongo.Collection
	employees    *mongo.Collection
	orderedItems *mongo.Collection
	laborEntries *mongo.Collection
}

// NewFactReader creates a reader bound to the raw collections in names.
func NewFactReader(db *mongo.Database, names Collections) *FactReader {
	return &FactReader{
		businesses:   db.Collection(names.Businesses),
		employees:    db.Collection(names.Employees),
		orderedItems: db.Collection(names.OrderedItems),
		laborEntries: db.Collection(names.LaborEntries),
	}
}

var _ application.FactReader = (*FactReader)(nil)

// Businesses returns every synced business ordered by id.
func (r *FactReader) Businesses(ctx context.Context) ([]domain.Business, error) {
	cursor, err := r.businesses.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, domain.WrapStore("find businesses", err)
	}
	defer cursor.Close(ctx)

	businesses := make([]domain.Business, 0)
	for cursor.Next(ctx) {
		var doc BusinessDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.WrapStore("decode business", err)
		}
		businesses = append(businesses, domain.Business{ID: doc.ID, Name: doc.Name})
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.WrapStore("find businesses", err)
	}
	return businesses, nil
}

// Employees returns the employees of one business ordered by id.
func (r *FactReader) Employees(ctx context.Context, businessID string) ([]domain.Employee, error) {
	cursor, err := r.employees.Find(ctx, bson.M{"business_id": businessID}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, domain.WrapStore("find employees", err)
	}
	defer cursor.Close(ctx)

	employees := make([]domain.Employee, 0)
	for cursor.Next(ctx) {
		var doc EmployeeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.WrapStore("decode employee", err)
		}
		employees = append(employees, mapEmployeeDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.WrapStore("find employees", err)
	}
	return employees, nil
}

// SumSales は未取消の明細の price 合計を返す。該当明細が無ければ 0。
func (r *FactReader) SumSales(ctx context.Context, q application.SalesQuery) (decimal.Decimal, error) {
	sums, err := r.aggregateSums(ctx, salesPipeline(q))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(sums.Price), nil
}

// SumPriceAndCost returns price and cost totals over [start, end).
func (r *FactReader) SumPriceAndCost(ctx context.Context, businessID string, w domain.Window) (decimal.Decimal, decimal.Decimal, error) {
	sums, err := r.aggregateSums(ctx, salesPipeline(application.SalesQuery{
		BusinessID: businessID,
		Window:     w,
		Bound:      domain.EndExclusive,
	}))
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return decimal.NewFromFloat(sums.Price), decimal.NewFromFloat(sums.Cost), nil
}

func (r *FactReader) aggregateSums(ctx context.Context, pipeline mongo.Pipeline) (sumDocument, error) {
	cursor, err := r.orderedItems.Aggregate(ctx, pipeline)
	if err != nil {
		return sumDocument{}, domain.WrapStore("aggregate orderedItems", err)
	}
	defer cursor.Close(ctx)

	var sums sumDocument
	if cursor.Next(ctx) {
		if err := cursor.Decode(&sums); err != nil {
			return sumDocument{}, domain.WrapStore("decode sums", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return sumDocument{}, domain.WrapStore("aggregate orderedItems", err)
	}
	return sums, nil
}

// ShiftsOverlapping returns the labor entries matching one of the four overlap cases.
func (r *FactReader) ShiftsOverlapping(ctx context.Context, businessID string, w domain.Window) ([]domain.LaborEntry, error) {
	cursor, err := r.laborEntries.Find(ctx, overlapFilter(businessID, w))
	if err != nil {
		return nil, domain.WrapStore("find laborEntries", err)
	}
	defer cursor.Close(ctx)

	shifts := make([]domain.LaborEntry, 0)
	for cursor.Next(ctx) {
		var doc LaborEntryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.WrapStore("decode laborEntry", err)
		}
		shift, err := mapLaborEntryDocument(doc)
		if err != nil {
			return nil, domain.WrapStore("decode laborEntry", err)
		}
		shifts = append(shifts, shift)
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.WrapStore("find laborEntries", err)
	}
	return shifts, nil
}

// createdAtRange compares wire strings; the format sorts lexically in time order.
func createdAtRange(w domain.Window, bound domain.EndBound) bson.M {
	upper := "$lt"
	if bound == domain.EndInclusive {
		upper = "$lte"
	}
	return bson.M{
		"$gte": domain.FormatWire(w.Start),
		upper:  domain.FormatWire(w.End),
	}
}

func salesPipeline(q application.SalesQuery) mongo.Pipeline {
	match := bson.M{
		"business_id": q.BusinessID,
		"created_at":  createdAtRange(q.Window, q.Bound),
		"voided":      false,
	}
	if q.EmployeeID != "" {
		match["employee_id"] = q.EmployeeID
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"price": bson.M{"$sum": "$price"},
			"cost":  bson.M{"$sum": "$cost"},
		}}},
	}
}

func overlapFilter(businessID string, w domain.Window) bson.M {
	start, end := domain.FormatWire(w.Start), domain.FormatWire(w.End)
	return bson.M{
		"business_id": businessID,
		"$or": []bson.M{
			{"clock_in": bson.M{"$gte": start, "$lt": end}, "clock_out": bson.M{"$lte": end}},
			{"clock_in": bson.M{"$gte": start, "$lt": end}, "clock_out": bson.M{"$gt": end}},
			{"clock_in": bson.M{"$lt": start}, "clock_out": bson.M{"$gt": start, "$lte": end}},
			{"clock_in": bson.M{"$lt": start}, "clock_out": bson.M{"$gt": end}},
		},
	}
}
