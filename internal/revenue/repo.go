package revenue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
)

// Aggregate is one bucketed sum over settlement lines.
type Aggregate struct {
	PaymentType    string          `gorm:"column:payment_type"`
	TransferStatus string          `gorm:"column:transfer_status"`
	TotalTTC       decimal.Decimal `gorm:"column:total_ttc"`
	TotalNet       decimal.Decimal `gorm:"column:total_net"`
	Commission     decimal.Decimal `gorm:"column:commission"`
	Count          int             `gorm:"column:count"`
}

// WeekRow is one Monday-Sunday bucket of a vendor's settlement history.
type WeekRow struct {
	WeekStart  time.Time       `gorm:"column:week_start"`
	WeekEnd    time.Time       `gorm:"column:week_end"`
	TotalTTC   decimal.Decimal `gorm:"column:total_ttc"`
	TotalNet   decimal.Decimal `gorm:"column:total_net"`
	Commission decimal.Decimal `gorm:"column:commission"`
	Count      int             `gorm:"column:count"`
}

// Repository aggregates the vendor payment ledger for reporting.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// AggregateBetween sums settlement lines per payment type and transfer
	// status over the payment date interval [from, to).
	AggregateBetween(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]Aggregate, error)
	// WeekHistory sums settlement lines per week bucket, newest first.
	WeekHistory(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]WeekRow, error)
	// PaymentsBetween loads a vendor's settlement lines over the payment date
	// interval [from, to), oldest first.
	PaymentsBetween(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]models.VendorPayment, error)
	// MonthTotals sums one vendor's lines for the calendar month.
	MonthTotals(ctx context.Context, vendorID uuid.UUID, month, year int) (Aggregate, error)
	VendorIDsWithPayments(ctx context.Context, month, year int) ([]uuid.UUID, error)
	FindInvoice(ctx context.Context, vendorID uuid.UUID, month, year int) (*models.VendorMonthlyInvoice, error)
	CreateInvoice(ctx context.Context, invoice *models.VendorMonthlyInvoice) error
	ListInvoices(ctx context.Context, vendorID uuid.UUID) ([]models.VendorMonthlyInvoice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a revenue repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

const aggregateSelect = "COALESCE(SUM(total_amount_ttc), 0) AS total_ttc, " +
	"COALESCE(SUM(net_amount_ttc), 0) AS total_net, " +
	"COALESCE(SUM(commission_incl_vat), 0) AS commission, " +
	"COUNT(*) AS count"

func (r *repository) AggregateBetween(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]Aggregate, error) {
	var rows []Aggregate
	err := r.db.WithContext(ctx).
		Model(&models.VendorPayment{}).
		Select("payment_type, transfer_status, " + aggregateSelect).
		Where("vendor_id = ? AND payment_date >= ? AND payment_date < ?", vendorID, from, to).
		Group("payment_type, transfer_status").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) WeekHistory(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]WeekRow, error) {
	if limit <= 0 {
		limit = 12
	}
	var rows []WeekRow
	err := r.db.WithContext(ctx).
		Model(&models.VendorPayment{}).
		Select("week_start, week_end, " + aggregateSelect).
		Where("vendor_id = ?", vendorID).
		Group("week_start, week_end").
		Order("week_start DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) PaymentsBetween(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]models.VendorPayment, error) {
	var rows []models.VendorPayment
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND payment_date >= ? AND payment_date < ?", vendorID, from, to).
		Order("payment_date ASC, created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) MonthTotals(ctx context.Context, vendorID uuid.UUID, month, year int) (Aggregate, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var row Aggregate
	err := r.db.WithContext(ctx).
		Model(&models.VendorPayment{}).
		Select(aggregateSelect).
		Where("vendor_id = ? AND payment_date >= ? AND payment_date < ?", vendorID, from, to).
		Scan(&row).Error
	return row, err
}

func (r *repository) VendorIDsWithPayments(ctx context.Context, month, year int) ([]uuid.UUID, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.VendorPayment{}).
		Distinct("vendor_id").
		Where("payment_date >= ? AND payment_date < ?", from, to).
		Pluck("vendor_id", &ids).Error
	return ids, err
}

func (r *repository) FindInvoice(ctx context.Context, vendorID uuid.UUID, month, year int) (*models.VendorMonthlyInvoice, error) {
	var invoice models.VendorMonthlyInvoice
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND month = ? AND year = ?", vendorID, month, year).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.VendorMonthlyInvoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) ListInvoices(ctx context.Context, vendorID uuid.UUID) ([]models.VendorMonthlyInvoice, error) {
	var invoices []models.VendorMonthlyInvoice
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("year DESC, month DESC").
		Find(&invoices).Error
	return invoices, err
}
