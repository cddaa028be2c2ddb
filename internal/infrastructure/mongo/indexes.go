package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func factIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "day", Value: 1}}},
	}
}

func rawIndexModels(names Collections) map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		names.Employees: {
			{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "id", Value: 1}}},
		},
		names.OrderedItems: {
			{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "employee_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		names.LaborEntries: {
			{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "clock_in", Value: 1}}},
		},
	}
}

// EnsureIndexes creates the range-filter indexes on the raw and fact collections.
func EnsureIndexes(ctx context.Context, db *mongo.Database, names Collections) error {
	for collection, models := range rawIndexModels(names) {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	for _, collection := range []string{names.EGS, names.FCP, names.LCP} {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, factIndexModels()); err != nil {
			return err
		}
	}
	return nil
}
