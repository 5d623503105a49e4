package revenue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/ledger"
	pkgdb "github.com/amineouhani/blanes-backend/pkg/db"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

// Overview is one week of a vendor's revenue, split per payment type and
// transfer status, with grand totals.
type Overview struct {
	WeekStart       time.Time       `json:"week_start"`
	WeekEnd         time.Time       `json:"week_end"`
	Buckets         []Aggregate     `json:"buckets"`
	TotalTTC        decimal.Decimal `json:"total_ttc"`
	TotalNet        decimal.Decimal `json:"total_net"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	PaymentCount    int             `json:"payment_count"`
}

// Service reports on the vendor payment ledger and freezes monthly invoices.
type Service interface {
	WeeklyOverview(ctx context.Context, vendorID uuid.UUID, at time.Time) (*Overview, error)
	History(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]WeekRow, error)
	MonthlyStats(ctx context.Context, vendorID uuid.UUID, month, year int) (*Overview, error)
	// GenerateMonthlyInvoice freezes the month's totals once; repeat calls
	// return the existing invoice untouched.
	GenerateMonthlyInvoice(ctx context.Context, vendorID uuid.UUID, month, year int) (*models.VendorMonthlyInvoice, error)
	// GenerateInvoicesForMonth invoices every vendor with settlement lines in
	// the month, returning how many invoices were newly created.
	GenerateInvoicesForMonth(ctx context.Context, month, year int) (int, error)
	ListInvoices(ctx context.Context, vendorID uuid.UUID) ([]models.VendorMonthlyInvoice, error)
	// ExportLedger renders a month of the vendor's settlement ledger as a
	// downloadable document.
	ExportLedger(ctx context.Context, vendorID uuid.UUID, month, year int, format string) (*ExportFile, error)
}

// ExportFile is a rendered ledger download, ready to write to the response.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the revenue service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("revenue repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) WeeklyOverview(ctx context.Context, vendorID uuid.UUID, at time.Time) (*Overview, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	weekStart, weekEnd := ledger.WeekBounds(at)
	buckets, err := s.repo.AggregateBetween(ctx, vendorID, weekStart, weekEnd.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	overview := &Overview{WeekStart: weekStart, WeekEnd: weekEnd, Buckets: buckets}
	overview.sum()
	return overview, nil
}

func (s *service) History(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]WeekRow, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.WeekHistory(ctx, vendorID, limit, offset)
}

func (s *service) MonthlyStats(ctx context.Context, vendorID uuid.UUID, month, year int) (*Overview, error) {
	if err := validatePeriod(vendorID, month, year); err != nil {
		return nil, err
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	buckets, err := s.repo.AggregateBetween(ctx, vendorID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	overview := &Overview{WeekStart: from, WeekEnd: from.AddDate(0, 1, -1), Buckets: buckets}
	overview.sum()
	return overview, nil
}

func (s *service) GenerateMonthlyInvoice(ctx context.Context, vendorID uuid.UUID, month, year int) (*models.VendorMonthlyInvoice, error) {
	if err := validatePeriod(vendorID, month, year); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindInvoice(ctx, vendorID, month, year)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	totals, err := s.repo.MonthTotals(ctx, vendorID, month, year)
	if err != nil {
		return nil, err
	}
	invoice := &models.VendorMonthlyInvoice{
		ID:              uuid.New(),
		VendorID:        vendorID,
		Month:           month,
		Year:            year,
		TotalTTC:        totals.TotalTTC,
		TotalCommission: totals.Commission,
		TotalNet:        totals.TotalNet,
		PaymentCount:    totals.Count,
	}
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		// A concurrent generation won the race; the frozen invoice stands.
		if pkgdb.IsUniqueViolation(err, "idx_invoice_period") {
			return s.repo.FindInvoice(ctx, vendorID, month, year)
		}
		return nil, err
	}
	return invoice, nil
}

func (s *service) GenerateInvoicesForMonth(ctx context.Context, month, year int) (int, error) {
	if month < 1 || month > 12 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "month out of range")
	}
	vendorIDs, err := s.repo.VendorIDsWithPayments(ctx, month, year)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, vendorID := range vendorIDs {
		if _, err := s.repo.FindInvoice(ctx, vendorID, month, year); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}
		if _, err := s.GenerateMonthlyInvoice(ctx, vendorID, month, year); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *service) ListInvoices(ctx context.Context, vendorID uuid.UUID) ([]models.VendorMonthlyInvoice, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.repo.ListInvoices(ctx, vendorID)
}

func (s *service) ExportLedger(ctx context.Context, vendorID uuid.UUID, month, year int, format string) (*ExportFile, error) {
	if err := validatePeriod(vendorID, month, year); err != nil {
		return nil, err
	}
	renderer, err := RendererFor(format)
	if err != nil {
		return nil, err
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lines, err := s.repo.PaymentsBetween(ctx, vendorID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.MonthTotals(ctx, vendorID, month, year)
	if err != nil {
		return nil, err
	}

	content, err := renderer.Render(&LedgerExport{
		VendorID: vendorID,
		Month:    month,
		Year:     year,
		Lines:    lines,
		Totals:   totals,
	})
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("ledger-%04d-%02d.%s", year, month, renderer.FileExtension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func (o *Overview) sum() {
	for _, bucket := range o.Buckets {
		o.TotalTTC = o.TotalTTC.Add(bucket.TotalTTC)
		o.TotalNet = o.TotalNet.Add(bucket.TotalNet)
		o.TotalCommission = o.TotalCommission.Add(bucket.Commission)
		o.PaymentCount += bucket.Count
	}
}

func validatePeriod(vendorID uuid.UUID, month, year int) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if month < 1 || month > 12 {
		return pkgerrors.New(pkgerrors.CodeValidation, "month out of range")
	}
	if year < 2000 {
		return pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}
	return nil
}
