package main

import (
	"math/rand"
	"testing"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

func TestGenerateDataset(t *testing.T) {
	opts := seedOptions{businessCount: 2, employeeCount: 3, days: 5, itemsPerShift: 4}
	data := generateDataset(rand.New(rand.NewSource(1)), opts, "demo-business", domain.Epoch)

	if len(data.businesses) != 2 || data.businesses[0].ID != "demo-business" {
		t.Fatalf("businesses = %+v", data.businesses)
	}
	if len(data.employees) != 6 || len(data.laborEntries) != 30 || len(data.orderedItems) != 120 {
		t.Fatalf("counts = %d employees, %d shifts, %d items", len(data.employees), len(data.laborEntries), len(data.orderedItems))
	}

	shifts := map[string][]domain.Window{}
	for _, entry := range data.laborEntries {
		in, err := domain.ParseWire(entry.ClockIn)
		if err != nil {
			t.Fatalf("clock_in %q: %v", entry.ClockIn, err)
		}
		out, err := domain.ParseWire(entry.ClockOut)
		if err != nil {
			t.Fatalf("clock_out %q: %v", entry.ClockOut, err)
		}
		if !in.Before(out) || in.Before(domain.Epoch) {
			t.Fatalf("shift %s .. %s", entry.ClockIn, entry.ClockOut)
		}
		shifts[entry.EmployeeID] = append(shifts[entry.EmployeeID], domain.Window{Start: in, End: out})
	}

	for _, item := range data.orderedItems {
		created, err := domain.ParseWire(item.CreatedAt)
		if err != nil {
			t.Fatalf("created_at %q: %v", item.CreatedAt, err)
		}
		inShift := false
		for _, w := range shifts[item.EmployeeID] {
			if w.Contains(created) {
				inShift = true
				break
			}
		}
		if !inShift {
			t.Fatalf("item at %s outside every shift of %s", item.CreatedAt, item.EmployeeID)
		}
		if item.Cost <= 0 || item.Cost >= item.Price {
			t.Fatalf("cost %v for price %v", item.Cost, item.Price)
		}
	}
}
