package commission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the commission split for one captured payment. Every amount is
// rounded to two decimals at the point of computation, so
// NetAmount + CommissionInclVAT always reconstructs the total exactly.
type Breakdown struct {
	RateApplied       decimal.Decimal
	CommissionExclVAT decimal.Decimal
	CommissionVAT     decimal.Decimal
	CommissionInclVAT decimal.Decimal
	NetAmount         decimal.Decimal
}

// Engine resolves the applicable commission rate for a vendor and computes the
// commission split. Global settings are injected at construction; the engine
// never fetches them lazily.
type Engine struct {
	repo     Repository
	settings models.CommissionSettings
}

// NewEngine builds the commission engine.
func NewEngine(repo Repository, settings models.CommissionSettings) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	return &Engine{repo: repo, settings: settings}, nil
}

// WithTx returns an engine whose lookups run inside the transaction.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	return &Engine{repo: e.repo.WithTx(tx), settings: e.settings}
}

// ResolveRate walks the precedence chain: vendor-level override, then the
// vendor+category configured row, then the category default, then the
// category-wide configured row, then zero.
func (e *Engine) ResolveRate(ctx context.Context, vendorID uuid.UUID, categoryID *uuid.UUID) (decimal.Decimal, error) {
	vendor, err := e.repo.FindVendor(ctx, vendorID)
	if err != nil {
		return decimal.Zero, err
	}
	if vendor.CommissionRate != nil {
		return *vendor.CommissionRate, nil
	}
	if categoryID == nil {
		return decimal.Zero, nil
	}

	rate, err := e.repo.VendorCategoryRate(ctx, vendorID, *categoryID)
	if err != nil {
		return decimal.Zero, err
	}
	if rate != nil {
		return *rate, nil
	}

	category, err := e.repo.FindCategory(ctx, *categoryID)
	if err != nil {
		return decimal.Zero, err
	}
	if category.DefaultCommissionRate != nil {
		return *category.DefaultCommissionRate, nil
	}

	rate, err = e.repo.CategoryWideRate(ctx, *categoryID)
	if err != nil {
		return decimal.Zero, err
	}
	if rate != nil {
		return *rate, nil
	}
	return decimal.Zero, nil
}

// EffectiveRate adjusts the base rate for partial payments. When the global
// partial rate is below the base rate it replaces it outright; otherwise it
// scales the base rate down proportionally. Full payments keep the base rate.
func (e *Engine) EffectiveRate(base decimal.Decimal, paymentType enums.PaymentType) decimal.Decimal {
	if paymentType != enums.PaymentTypePartial {
		return base
	}
	partial := e.settings.PartialPaymentRate
	if partial.LessThan(base) {
		return partial
	}
	return base.Mul(partial).Div(hundred)
}

// Calculate splits the captured total into commission and vendor net using the
// given rate and the configured VAT rate.
func (e *Engine) Calculate(total, rate decimal.Decimal) Breakdown {
	exclVAT := total.Mul(rate).Div(hundred).Round(2)
	vat := exclVAT.Mul(e.settings.VATRate).Div(hundred).Round(2)
	inclVAT := exclVAT.Add(vat)
	return Breakdown{
		RateApplied:       rate,
		CommissionExclVAT: exclVAT,
		CommissionVAT:     vat,
		CommissionInclVAT: inclVAT,
		NetAmount:         total.Sub(inclVAT),
	}
}

// BreakdownFor resolves the rate, applies the partial adjustment and computes
// the split in one call. This is the entry point the settlement flow uses.
func (e *Engine) BreakdownFor(ctx context.Context, vendorID uuid.UUID, categoryID *uuid.UUID, total decimal.Decimal, paymentType enums.PaymentType) (Breakdown, error) {
	base, err := e.ResolveRate(ctx, vendorID, categoryID)
	if err != nil {
		return Breakdown{}, err
	}
	return e.Calculate(total, e.EffectiveRate(base, paymentType)), nil
}
