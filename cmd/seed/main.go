package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/avero-reporting/api/internal/config"
	mongodoc "github.com/sngm3741/avero-reporting/api/internal/infrastructure/mongo"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
	"github.com/sngm3741/avero-reporting/api/internal/server"
)

type seedOptions struct {
	businessCount   int
	employeeCount   int
	days            int
	itemsPerShift   int
	dropCollections bool
	randomSeed      int64
}

type dataset struct {
	businesses   []mongodoc.BusinessDocument
	employees    []mongodoc.EmployeeDocument
	orderedItems []mongodoc.OrderedItemDocument
	laborEntries []mongodoc.LaborEntryDocument
}

var menu = []struct {
	name  string
	price float64
}{
	{"Margherita", 14},
	{"Caesar Salad", 11.5},
	{"Ribeye", 38},
	{"Fish Tacos", 16},
	{"Tiramisu", 9},
	{"House Red", 12},
	{"Espresso", 3.5},
}

var firstNames = []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Ken", "Margaret", "Dennis"}
var lastNames = []string{"Lovelace", "Hopper", "Turing", "Dijkstra", "Liskov", "Thompson", "Hamilton", "Ritchie"}

func main() {
	opts := parseFlags()
	cfg := config.Load()
	logger := cfg.Logger

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.WithError(err).Fatal("MongoDB 接続に失敗しました")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(cfg.MongoDatabase)
	names := server.CollectionNames(cfg)

	if opts.dropCollections {
		for _, name := range []string{names.Businesses, names.Employees, names.OrderedItems, names.LaborEntries} {
			if err := db.Collection(name).Drop(ctx); err != nil {
				logger.WithError(err).WithField("collection", name).Fatal("コレクション削除に失敗しました")
			}
		}
		logger.Info("既存コレクションを削除しました")
	}

	rng := rand.New(rand.NewSource(opts.randomSeed))
	data := generateDataset(rng, opts, cfg.DefaultBusinessID, domain.Epoch)

	inserts := []struct {
		collection string
		docs       []any
	}{
		{names.Businesses, toAnySlice(data.businesses)},
		{names.Employees, toAnySlice(data.employees)},
		{names.OrderedItems, toAnySlice(data.orderedItems)},
		{names.LaborEntries, toAnySlice(data.laborEntries)},
	}
	for _, ins := range inserts {
		if err := insertMany(ctx, db.Collection(ins.collection), ins.docs); err != nil {
			logger.WithError(err).WithField("collection", ins.collection).Fatal("データの挿入に失敗しました")
		}
	}

	if err := mongodoc.EnsureIndexes(ctx, db, names); err != nil {
		logger.WithError(err).Fatal("インデックス作成に失敗しました")
	}

	logger.WithFields(logrus.Fields{
		"businesses":   len(data.businesses),
		"employees":    len(data.employees),
		"orderedItems": len(data.orderedItems),
		"laborEntries": len(data.laborEntries),
		"mongo_db":     cfg.MongoDatabase,
	}).Info("Seed 完了")
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.IntVar(&opts.businessCount, "businesses", 1, "生成する事業所数 (1 件目は DEFAULT_BUSINESS_ID)")
	flag.IntVar(&opts.employeeCount, "employees", 4, "事業所ごとの従業員数")
	flag.IntVar(&opts.days, "days", 14, "エポックから何日分のシフトと注文を生成するか")
	flag.IntVar(&opts.itemsPerShift, "items", 12, "シフトごとの注文明細数")
	flag.BoolVar(&opts.dropCollections, "drop", true, "既存コレクションを削除してから投入する")
	flag.Int64Var(&opts.randomSeed, "seed", 20180501, "乱数シード（再現用）")
	flag.Parse()
	return opts
}

// generateDataset は各従業員に 1 日 1 シフトを割り当て、シフト時間内に注文明細を散らして生成する。
func generateDataset(rng *rand.Rand, opts seedOptions, defaultBusinessID string, from time.Time) dataset {
	var data dataset
	for b := 0; b < opts.businessCount; b++ {
		businessID := uuid.NewString()
		if b == 0 && defaultBusinessID != "" {
			businessID = defaultBusinessID
		}
		data.businesses = append(data.businesses, mongodoc.BusinessDocument{
			ID:   businessID,
			Name: fmt.Sprintf("Demo Bistro %d", b+1),
		})

		for e := 0; e < opts.employeeCount; e++ {
			employee := mongodoc.EmployeeDocument{
				ID:         uuid.NewString(),
				BusinessID: businessID,
				FirstName:  firstNames[rng.Intn(len(firstNames))],
				LastName:   lastNames[rng.Intn(len(lastNames))],
			}
			data.employees = append(data.employees, employee)
			payRate := float64(12 + rng.Intn(10))

			for d := 0; d < opts.days; d++ {
				day := from.AddDate(0, 0, d)
				clockIn := day.Add(time.Duration(8+rng.Intn(6))*time.Hour + time.Duration(rng.Intn(4))*15*time.Minute)
				clockOut := clockIn.Add(time.Duration(4+rng.Intn(5))*time.Hour + time.Duration(rng.Intn(4))*15*time.Minute)

				data.laborEntries = append(data.laborEntries, mongodoc.LaborEntryDocument{
					ID:         uuid.NewString(),
					BusinessID: businessID,
					EmployeeID: employee.ID,
					Name:       employee.FirstName + " " + employee.LastName,
					ClockIn:    domain.FormatWire(clockIn),
					ClockOut:   domain.FormatWire(clockOut),
					PayRate:    payRate,
					CreatedAt:  domain.FormatWire(clockIn),
				})

				shift := clockOut.Sub(clockIn)
				for i := 0; i < opts.itemsPerShift; i++ {
					item := menu[rng.Intn(len(menu))]
					createdAt := clockIn.Add(time.Duration(rng.Int63n(int64(shift))))
					data.orderedItems = append(data.orderedItems, mongodoc.OrderedItemDocument{
						ID:         uuid.NewString(),
						BusinessID: businessID,
						EmployeeID: employee.ID,
						Name:       item.name,
						Price:      item.price,
						Cost:       round(item.price*(0.25+rng.Float64()*0.15), 2),
						Voided:     rng.Intn(20) == 0,
						CreatedAt:  domain.FormatWire(createdAt.Truncate(time.Millisecond)),
					})
				}
			}
		}
	}
	return data
}

func insertMany(ctx context.Context, col *mongo.Collection, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := col.InsertMany(ctx, docs)
	return err
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func round(val float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(val*p) / p
}
