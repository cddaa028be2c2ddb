package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// egsProducer computes employee gross sales per business, employee and hour.
type egsProducer struct {
	reader FactReader
}

func (p egsProducer) report() domain.ReportType { return domain.ReportEGS }

func (p egsProducer) produce(ctx context.Context, r *run) error {
	businesses, err := p.reader.Businesses(ctx)
	if err != nil {
		return err
	}
	for _, business := range businesses {
		employees, err := p.reader.Employees(ctx, business.ID)
		if err != nil {
			return err
		}
		for _, employee := range employees {
			entry := r.log.WithFields(logrus.Fields{"business_id": business.ID, "employee_id": employee.ID})
			entry.Infof("generating EGS for business %s, employee %s", business.Name, employee.FullName())

			err := r.windowsFor(ctx, entry, func(_ int, w domain.Window) error {
				sales, err := p.reader.SumSales(ctx, SalesQuery{
					BusinessID: business.ID,
					EmployeeID: employee.ID,
					Window:     w,
					Bound:      domain.EndExclusive,
				})
				if err != nil {
					return err
				}
				return r.emit(ctx, domain.EGSFact{
					BusinessID:   business.ID,
					EmployeeID:   employee.ID,
					EmployeeName: employee.FullName(),
					Window:       w,
					Sales:        sales,
				})
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
