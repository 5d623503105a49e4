package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/amineouhani/blanes-backend/internal/revenue"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

// InvoiceJob freezes last month's settlement totals into one invoice per
// vendor. Generation is idempotent, so re-runs after a missed cycle are safe.
type InvoiceJob struct {
	revenue revenue.Service
	logg    *logger.Logger
}

// NewInvoiceJob builds the monthly invoice job.
func NewInvoiceJob(revenueSvc revenue.Service, logg *logger.Logger) (*InvoiceJob, error) {
	if revenueSvc == nil {
		return nil, fmt.Errorf("revenue service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &InvoiceJob{revenue: revenueSvc, logg: logg}, nil
}

// Name implements Job.
func (j *InvoiceJob) Name() string {
	return "monthly-invoices"
}

// Run implements Job.
func (j *InvoiceJob) Run(ctx context.Context) error {
	previous := time.Now().AddDate(0, -1, 0)
	created, err := j.revenue.GenerateInvoicesForMonth(ctx, int(previous.Month()), previous.Year())
	if err != nil {
		return err
	}
	if created > 0 {
		fields := map[string]any{
			"month":    int(previous.Month()),
			"year":     previous.Year(),
			"invoices": created,
		}
		j.logg.Info(j.logg.WithFields(ctx, fields), "generated monthly vendor invoices")
	}
	return nil
}
