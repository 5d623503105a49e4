package commission

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:commission_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Vendor{},
		&models.Category{},
		&models.VendorCommission{},
		&models.CommissionSettings{},
	))
	return db
}

func newEngine(t *testing.T, db *gorm.DB, settings models.CommissionSettings) *Engine {
	t.Helper()
	engine, err := NewEngine(NewRepository(db), settings)
	require.NoError(t, err)
	return engine
}

func seedVendor(t *testing.T, db *gorm.DB, rate *decimal.Decimal) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{
		ID:             uuid.New(),
		CompanyName:    "Riad Atlas",
		Email:          "vendor@example.com",
		CommissionRate: rate,
	}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func seedCategory(t *testing.T, db *gorm.DB, rate *decimal.Decimal) *models.Category {
	t.Helper()
	category := &models.Category{
		ID:                    uuid.New(),
		Name:                  "Wellness",
		DefaultCommissionRate: rate,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolveRate_VendorOverrideWins(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{})

	override := dec("12.5")
	catRate := dec("20")
	vendor := seedVendor(t, db, &override)
	category := seedCategory(t, db, &catRate)

	rate, err := engine.ResolveRate(context.Background(), vendor.ID, &category.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(override))
}

func TestResolveRate_VendorCategoryRow(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{})

	vendor := seedVendor(t, db, nil)
	catDefault := dec("20")
	category := seedCategory(t, db, &catDefault)
	require.NoError(t, db.Create(&models.VendorCommission{
		ID:         uuid.New(),
		VendorID:   &vendor.ID,
		CategoryID: category.ID,
		Rate:       dec("15"),
		Active:     true,
	}).Error)

	rate, err := engine.ResolveRate(context.Background(), vendor.ID, &category.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("15")), "configured row beats category default")
}

func TestResolveRate_InactiveRowIgnored(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{})

	vendor := seedVendor(t, db, nil)
	catDefault := dec("20")
	category := seedCategory(t, db, &catDefault)
	require.NoError(t, db.Create(&models.VendorCommission{
		ID:         uuid.New(),
		VendorID:   &vendor.ID,
		CategoryID: category.ID,
		Rate:       dec("15"),
		Active:     false,
	}).Error)

	rate, err := engine.ResolveRate(context.Background(), vendor.ID, &category.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("20")))
}

func TestResolveRate_CategoryWideFallback(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{})

	vendor := seedVendor(t, db, nil)
	category := seedCategory(t, db, nil)
	require.NoError(t, db.Create(&models.VendorCommission{
		ID:         uuid.New(),
		CategoryID: category.ID,
		Rate:       dec("8"),
		Active:     true,
	}).Error)

	rate, err := engine.ResolveRate(context.Background(), vendor.ID, &category.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("8")))
}

func TestResolveRate_NothingConfigured(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{})

	vendor := seedVendor(t, db, nil)
	category := seedCategory(t, db, nil)

	rate, err := engine.ResolveRate(context.Background(), vendor.ID, &category.ID)
	require.NoError(t, err)
	assert.True(t, rate.IsZero())

	rate, err = engine.ResolveRate(context.Background(), vendor.ID, nil)
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestEffectiveRate_PartialBelowBaseReplaces(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{PartialPaymentRate: dec("3")})

	rate := engine.EffectiveRate(dec("10"), enums.PaymentTypePartial)
	assert.True(t, rate.Equal(dec("3")))
}

func TestEffectiveRate_PartialAboveBaseScales(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{PartialPaymentRate: dec("5")})

	rate := engine.EffectiveRate(dec("2"), enums.PaymentTypePartial)
	assert.True(t, rate.Equal(dec("0.1")), "2 x 5 / 100")
}

func TestEffectiveRate_FullPaymentUnchanged(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{PartialPaymentRate: dec("3")})

	rate := engine.EffectiveRate(dec("10"), enums.PaymentTypeFull)
	assert.True(t, rate.Equal(dec("10")))
}

func TestCalculate_SplitReconstructsTotal(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{VATRate: dec("20")})

	total := dec("210.00")
	b := engine.Calculate(total, dec("10"))

	assert.True(t, b.CommissionExclVAT.Equal(dec("21.00")))
	assert.True(t, b.CommissionVAT.Equal(dec("4.20")))
	assert.True(t, b.CommissionInclVAT.Equal(dec("25.20")))
	assert.True(t, b.NetAmount.Equal(dec("184.80")))
	assert.True(t, b.NetAmount.Add(b.CommissionInclVAT).Equal(total))
}

func TestCalculate_RoundingStillReconstructsTotal(t *testing.T) {
	db := newTestDB(t)
	engine := newEngine(t, db, models.CommissionSettings{VATRate: dec("20")})

	total := dec("99.99")
	b := engine.Calculate(total, dec("7.77"))

	assert.True(t, b.NetAmount.Add(b.CommissionInclVAT).Equal(total))
	assert.True(t, b.CommissionExclVAT.Exponent() >= -2, "amounts carry at most two decimals")
}

func TestLoadSettings(t *testing.T) {
	db := newTestDB(t)

	_, err := LoadSettings(context.Background(), db)
	require.Error(t, err, "missing row is a deployment error")

	require.NoError(t, db.Create(&models.CommissionSettings{
		ID:                 1,
		VATRate:            dec("20"),
		PartialPaymentRate: dec("3"),
	}).Error)

	settings, err := LoadSettings(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, settings.VATRate.Equal(dec("20")))
}
