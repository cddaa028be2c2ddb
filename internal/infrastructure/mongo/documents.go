package mongo

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// BusinessDocument は同期済み businesses コレクションのスキーマ。
type BusinessDocument struct {
	ID   string `bson:"id"`
	Name string `bson:"name"`
}

// EmployeeDocument は同期済み employees コレクションのスキーマ。
type EmployeeDocument struct {
	ID         string `bson:"id"`
	BusinessID string `bson:"business_id"`
	FirstName  string `bson:"first_name"`
	LastName   string `bson:"last_name"`
}

// OrderedItemDocument は orderedItems の 1 明細。created_at はワイヤ形式の文字列のまま保存される。
type OrderedItemDocument struct {
	ID         string  `bson:"id,omitempty"`
	BusinessID string  `bson:"business_id"`
	EmployeeID string  `bson:"employee_id"`
	CheckID    string  `bson:"check_id,omitempty"`
	Name       string  `bson:"name,omitempty"`
	Price      float64 `bson:"price"`
	Cost       float64 `bson:"cost"`
	Voided     bool    `bson:"voided"`
	CreatedAt  string  `bson:"created_at"`
	UpdatedAt  string  `bson:"updated_at,omitempty"`
}

// LaborEntryDocument は laborEntries の 1 シフト。
type LaborEntryDocument struct {
	ID         string  `bson:"id,omitempty"`
	BusinessID string  `bson:"business_id"`
	EmployeeID string  `bson:"employee_id"`
	Name       string  `bson:"name,omitempty"`
	ClockIn    string  `bson:"clock_in"`
	ClockOut   string  `bson:"clock_out"`
	PayRate    float64 `bson:"pay_rate"`
	CreatedAt  string  `bson:"created_at,omitempty"`
}

// EGSDocument は egs コレクションの 1 行 (事業所 × 従業員 × 1 時間)。
type EGSDocument struct {
	BusinessID   string  `bson:"business_id"`
	EmployeeID   string  `bson:"employee_id"`
	EmployeeName string  `bson:"employee_name"`
	Start        string  `bson:"start"`
	End          string  `bson:"end"`
	Day          string  `bson:"day"`
	Sales        float64 `bson:"sales"`
}

// FCPDocument は fcp コレクションの 1 行 (事業所 × 1 時間)。
type FCPDocument struct {
	BusinessID string  `bson:"business_id"`
	Start      string  `bson:"start"`
	End        string  `bson:"end"`
	Day        string  `bson:"day"`
	Price      float64 `bson:"price"`
	Cost       float64 `bson:"cost"`
	FCP        float64 `bson:"fcp"`
}

// LCPDocument は lcp コレクションの 1 行 (事業所 × 1 時間)。
type LCPDocument struct {
	BusinessID string  `bson:"business_id"`
	Start      string  `bson:"start"`
	End        string  `bson:"end"`
	Day        string  `bson:"day"`
	LaborCost  float64 `bson:"laborCost"`
	TotalSales float64 `bson:"totalSales"`
	LCP        float64 `bson:"lcp"`
}

// groupRowDocument is the final projection of every rollup pipeline.
type groupRowDocument struct {
	Start        string             `bson:"start,omitempty"`
	End          string             `bson:"end,omitempty"`
	Day          string             `bson:"day,omitempty"`
	ISOYear      int                `bson:"isoYear,omitempty"`
	ISOWeek      int                `bson:"isoWeek,omitempty"`
	Year         int                `bson:"year,omitempty"`
	Month        int                `bson:"month,omitempty"`
	EmployeeID   string             `bson:"employee_id,omitempty"`
	EmployeeName string             `bson:"employee_name,omitempty"`
	Values       map[string]float64 `bson:"values"`
}

type totalDocument struct {
	Total int `bson:"total"`
}

type sumDocument struct {
	Price float64 `bson:"price"`
	Cost  float64 `bson:"cost"`
}

func factDocument(fact domain.HourlyFact) (any, error) {
	switch f := fact.(type) {
	case domain.EGSFact:
		return EGSDocument{
			BusinessID:   f.BusinessID,
			EmployeeID:   f.EmployeeID,
			EmployeeName: f.EmployeeName,
			Start:        domain.FormatWire(f.Window.Start),
			End:          domain.FormatWire(f.Window.End),
			Day:          domain.FormatDay(f.Window.Start),
			Sales:        f.Sales.InexactFloat64(),
		}, nil
	case domain.FCPFact:
		return FCPDocument{
			BusinessID: f.BusinessID,
			Start:      domain.FormatWire(f.Window.Start),
			End:        domain.FormatWire(f.Window.End),
			Day:        domain.FormatDay(f.Window.Start),
			Price:      f.Price.InexactFloat64(),
			Cost:       f.Cost.InexactFloat64(),
			FCP:        f.FCP.InexactFloat64(),
		}, nil
	case domain.LCPFact:
		return LCPDocument{
			BusinessID: f.BusinessID,
			Start:      domain.FormatWire(f.Window.Start),
			End:        domain.FormatWire(f.Window.End),
			Day:        domain.FormatDay(f.Window.Start),
			LaborCost:  f.LaborCost.InexactFloat64(),
			TotalSales: f.TotalSales.InexactFloat64(),
			LCP:        f.LCP.InexactFloat64(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %T", domain.ErrInvalidReportType, fact)
}

func mapEmployeeDocument(doc EmployeeDocument) domain.Employee {
	return domain.Employee{
		ID:         doc.ID,
		BusinessID: doc.BusinessID,
		FirstName:  doc.FirstName,
		LastName:   doc.LastName,
	}
}

func mapLaborEntryDocument(doc LaborEntryDocument) (domain.LaborEntry, error) {
	clockIn, err := domain.ParseWire(doc.ClockIn)
	if err != nil {
		return domain.LaborEntry{}, fmt.Errorf("clock_in: %w", err)
	}
	clockOut, err := domain.ParseWire(doc.ClockOut)
	if err != nil {
		return domain.LaborEntry{}, fmt.Errorf("clock_out: %w", err)
	}
	return domain.LaborEntry{
		BusinessID: doc.BusinessID,
		EmployeeID: doc.EmployeeID,
		ClockIn:    clockIn,
		ClockOut:   clockOut,
		PayRate:    decimal.NewFromFloat(doc.PayRate),
	}, nil
}
