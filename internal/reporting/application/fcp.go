package application

import (
	"context"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// fcpProducer computes food cost percentage per business and hour.
type fcpProducer struct {
	reader FactReader
}

func (p fcpProducer) report() domain.ReportType { return domain.ReportFCP }

func (p fcpProducer) produce(ctx context.Context, r *run) error {
	businesses, err := p.reader.Businesses(ctx)
	if err != nil {
		return err
	}
	for _, business := range businesses {
		entry := r.log.WithField("business_id", business.ID)
		entry.Infof("generating FCP for %s", business.Name)

		err := r.windowsFor(ctx, entry, func(_ int, w domain.Window) error {
			price, cost, err := p.reader.SumPriceAndCost(ctx, business.ID, w)
			if err != nil {
				return err
			}
			return r.emit(ctx, domain.FCPFact{
				BusinessID: business.ID,
				Window:     w,
				Price:      price,
				Cost:       cost,
				FCP:        domain.Percentage(cost, price),
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

