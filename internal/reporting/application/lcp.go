package application

import (
	"context"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// lcpProducer computes labor cost percentage per business and hour.
type lcpProducer struct {
	reader FactReader
}

func (p lcpProducer) report() domain.ReportType { return domain.ReportLCP }

func (p lcpProducer) produce(ctx context.Context, r *run) error {
	businesses, err := p.reader.Businesses(ctx)
	if err != nil {
		return err
	}
	for _, business := range businesses {
		entry := r.log.WithField("business_id", business.ID)
		entry.Infof("generating LCP for %s", business.Name)

		err := r.windowsFor(ctx, entry, func(_ int, w domain.Window) error {
			shifts, err := p.reader.ShiftsOverlapping(ctx, business.ID, w)
			if err != nil {
				return err
			}
			laborCost := domain.LaborCost(w, shifts)

			// sales for LCP include items created exactly at the window end
			sales, err := p.reader.SumSales(ctx, SalesQuery{
				BusinessID: business.ID,
				Window:     w,
				Bound:      domain.EndInclusive,
			})
			if err != nil {
				return err
			}
			return r.emit(ctx, domain.LCPFact{
				BusinessID: business.ID,
				Window:     w,
				LaborCost:  laborCost,
				TotalSales: sales,
				LCP:        domain.Percentage(laborCost, sales),
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

