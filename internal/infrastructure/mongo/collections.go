package mongo

import (
	"fmt"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// Collections names every collection the reporting service touches.
type Collections struct {
	Businesses   string
	Employees    string
	OrderedItems string
	LaborEntries string
	EGS          string
	FCP          string
	LCP          string
}

// Fact returns the live collection of a report.
func (c Collections) Fact(report domain.ReportType) (string, error) {
	switch report {
	case domain.ReportEGS:
		return c.EGS, nil
	case domain.ReportFCP:
		return c.FCP, nil
	case domain.ReportLCP:
		return c.LCP, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidReportType, report)
}

// Raw returns the collection a synced resource is stored in. Resources without a
// configured name (menuItems, checks) keep the resource name.
func (c Collections) Raw(resource string) string {
	switch resource {
	case "businesses":
		return c.Businesses
	case "employees":
		return c.Employees
	case "orderedItems":
		return c.OrderedItems
	case "laborEntries":
		return c.LaborEntries
	}
	return resource
}

func stagingName(target, runID string) string {
	return target + "_staging_" + runID
}
