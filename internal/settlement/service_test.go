package settlement

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/commission"
	"github.com/amineouhani/blanes-backend/internal/gateway"
	"github.com/amineouhani/blanes-backend/internal/ledger"
	"github.com/amineouhani/blanes-backend/internal/notifications"
	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	"github.com/amineouhani/blanes-backend/pkg/logger"
)

const testStoreKey = "TEST_STORE_KEY"

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type memIdem struct {
	keys map[string]bool
}

func newMemIdem() *memIdem {
	return &memIdem{keys: map[string]bool{}}
}

func (m *memIdem) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdem) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memIdem) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:settlement_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Vendor{},
		&models.Category{},
		&models.VendorCommission{},
		&models.Blane{},
		&models.Customer{},
		&models.Order{},
		&models.Reservation{},
		&models.Transaction{},
		&models.VendorPayment{},
		&models.VendorPaymentLog{},
		&models.Notification{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	vendor   *models.Vendor
	category *models.Category
	blane    *models.Blane
	customer *models.Customer
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFixture(t *testing.T, idem idempotencyStore) *fixture {
	t.Helper()
	db := newTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "settlement-test"})

	adapter, err := gateway.NewAdapter(config.GatewayConfig{
		ClientID: "600001234",
		StoreKey: testStoreKey,
	})
	require.NoError(t, err)

	engine, err := commission.NewEngine(commission.NewRepository(db), models.CommissionSettings{
		VATRate:            dec("20"),
		PartialPaymentRate: dec("3"),
	})
	require.NoError(t, err)

	ledgerSvc, err := ledger.NewService(gormTx{db: db}, ledger.NewRepository(db), logg)
	require.NoError(t, err)
	notifSvc, err := notifications.NewService(notifications.NewRepository(db))
	require.NoError(t, err)

	svc, err := NewService(gormTx{db: db}, NewRepository(db), adapter, engine, ledgerSvc, notifSvc, idem, logg, nil)
	require.NoError(t, err)

	rate := dec("10")
	vendor := &models.Vendor{ID: uuid.New(), CompanyName: "Riad Atlas", Email: "vendor@example.com"}
	require.NoError(t, db.Create(vendor).Error)
	category := &models.Category{ID: uuid.New(), Name: "Wellness", DefaultCommissionRate: &rate}
	require.NoError(t, db.Create(category).Error)
	blane := &models.Blane{
		ID:         uuid.New(),
		VendorID:   &vendor.ID,
		CategoryID: &category.ID,
		Name:       "Spa day",
		Type:       enums.BlaneTypeOrder,
		Price:      decimal.NewFromInt(100),
		Active:     true,
	}
	require.NoError(t, db.Create(blane).Error)
	customer := &models.Customer{ID: uuid.New(), Name: "Sara B", Email: "sara@example.com", Phone: "+212600000000"}
	require.NoError(t, db.Create(customer).Error)

	return &fixture{db: db, svc: svc, vendor: vendor, category: category, blane: blane, customer: customer}
}

func (f *fixture) seedOrder(t *testing.T, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                   uuid.New(),
		Code:                 "ORDER-AA000001",
		BlaneID:              f.blane.ID,
		CustomerID:           f.customer.ID,
		VendorID:             &f.vendor.ID,
		Quantity:             2,
		PaymentMethod:        enums.PaymentMethodOnline,
		Status:               enums.OrderStatusPending,
		TotalPrice:           dec("210.00"),
		CancelToken:          "t",
		CancelTokenCreatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func approvedForm(t *testing.T, oid, transID string) url.Values {
	t.Helper()
	params := map[string]string{
		"oid":            oid,
		"ProcReturnCode": "00",
		"Response":       "Approved",
		"TransId":        transID,
		"AuthCode":       "123456",
		"amount":         "210.00",
	}
	hash := gateway.ComputeHash(params, testStoreKey)
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("HASH", hash)
	form.Set("encoding", "UTF-8")
	return form
}

func TestHandleCallback_CapturesOrder(t *testing.T) {
	f := newFixture(t, newMemIdem())
	order := f.seedOrder(t, nil)

	result := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	assert.Equal(t, BodyCapture, result.Body)
	assert.True(t, result.Captured)

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, reloaded.Status)

	var transaction models.Transaction
	require.NoError(t, f.db.First(&transaction, "gateway_trans_id = ?", "TX-1").Error)
	require.NotNil(t, transaction.OrderID)
	assert.Equal(t, order.ID, *transaction.OrderID)
	assert.Equal(t, "00", transaction.ProcReturnCode)

	var payment models.VendorPayment
	require.NoError(t, f.db.First(&payment).Error)
	assert.Equal(t, f.vendor.ID, payment.VendorID)
	assert.True(t, payment.CommissionExclVAT.Equal(dec("21.00")), "10 percent of 210")
	assert.True(t, payment.CommissionVAT.Equal(dec("4.20")))
	assert.True(t, payment.NetAmountTTC.Add(payment.CommissionInclVAT).Equal(payment.TotalAmountTTC))
	assert.Equal(t, enums.TransferStatusPending, payment.TransferStatus)
	assert.Equal(t, enums.PaymentTypeFull, payment.PaymentType)

	var notifCount int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&notifCount).Error)
	assert.EqualValues(t, 1, notifCount)
}

func TestHandleCallback_DuplicateDelivery(t *testing.T) {
	f := newFixture(t, newMemIdem())
	order := f.seedOrder(t, nil)

	first := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	require.True(t, first.Captured)

	second := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	assert.Equal(t, BodyCapture, second.Body)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Captured)

	var transactions int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Count(&transactions).Error)
	assert.EqualValues(t, 1, transactions)

	var payments int64
	require.NoError(t, f.db.Model(&models.VendorPayment{}).Count(&payments).Error)
	assert.EqualValues(t, 1, payments)
}

func TestHandleCallback_RetriedWithNewTransID(t *testing.T) {
	f := newFixture(t, newMemIdem())
	order := f.seedOrder(t, nil)

	first := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	require.True(t, first.Captured)

	// A gateway retry carries a fresh TransId, so neither the redis guard nor
	// the transaction uniqueness check catches it. The conditional status
	// transition has to.
	second := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-2"))
	assert.Equal(t, BodyCapture, second.Body)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Captured)

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, reloaded.Status)

	var transactions int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Count(&transactions).Error)
	assert.EqualValues(t, 1, transactions)

	var payments int64
	require.NoError(t, f.db.Model(&models.VendorPayment{}).Count(&payments).Error)
	assert.EqualValues(t, 1, payments, "commission settled exactly once")
}

func TestMarkOrderPaidWinsOnlyOnce(t *testing.T) {
	f := newFixture(t, newMemIdem())
	order := f.seedOrder(t, nil)
	repo := NewRepository(f.db)

	moved, err := repo.MarkOrderPaid(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.MarkOrderPaid(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestHandleCallback_DuplicateWithoutRedis(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, nil)

	first := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	require.True(t, first.Captured)

	// With no redis guard the database state carries the idempotency.
	second := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	assert.Equal(t, BodyCapture, second.Body)
	assert.True(t, second.Duplicate)
}

func TestHandleCallback_InvalidHash(t *testing.T) {
	f := newFixture(t, newMemIdem())
	order := f.seedOrder(t, nil)

	form := approvedForm(t, order.Code, "TX-1")
	form.Set("amount", "1.00")

	result := f.svc.HandleCallback(context.Background(), form)
	assert.Equal(t, BodyFailure, result.Body)

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status, "no state change on bad signature")
}

func TestHandleCallback_Declined(t *testing.T) {
	f := newFixture(t, newMemIdem())
	order := f.seedOrder(t, nil)

	params := map[string]string{
		"oid":            order.Code,
		"ProcReturnCode": "99",
		"Response":       "Declined",
		"TransId":        "TX-1",
	}
	hash := gateway.ComputeHash(params, testStoreKey)
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("HASH", hash)

	result := f.svc.HandleCallback(context.Background(), form)
	assert.Equal(t, BodyFailure, result.Body)
}

func TestHandleCallback_UnknownPrefix(t *testing.T) {
	f := newFixture(t, newMemIdem())

	result := f.svc.HandleCallback(context.Background(), approvedForm(t, "SUB-AA000001", "TX-1"))
	assert.Equal(t, BodyFailure, result.Body)
}

func TestHandleCallback_PartialPaymentType(t *testing.T) {
	f := newFixture(t, newMemIdem())
	partial := dec("63.00")
	order := f.seedOrder(t, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodPartial
		o.PartialPrice = &partial
	})

	result := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	require.True(t, result.Captured)

	var payment models.VendorPayment
	require.NoError(t, f.db.First(&payment).Error)
	assert.Equal(t, enums.PaymentTypePartial, payment.PaymentType)
	// Partial rate 3 undercuts the base 10, so it applies directly.
	assert.True(t, payment.CommissionRateApplied.Equal(dec("3")))
	assert.True(t, payment.CommissionExclVAT.Equal(dec("6.30")))
}

func TestHandleCallback_NoVendorSkipsLedger(t *testing.T) {
	f := newFixture(t, newMemIdem())
	order := f.seedOrder(t, func(o *models.Order) {
		o.VendorID = nil
	})

	result := f.svc.HandleCallback(context.Background(), approvedForm(t, order.Code, "TX-1"))
	require.True(t, result.Captured)

	var payments int64
	require.NoError(t, f.db.Model(&models.VendorPayment{}).Count(&payments).Error)
	assert.EqualValues(t, 0, payments)

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, reloaded.Status)
}

func TestHandleCallback_SettlesReservation(t *testing.T) {
	f := newFixture(t, newMemIdem())
	reservation := &models.Reservation{
		ID:                   uuid.New(),
		Code:                 "RES-AA000001",
		BlaneID:              f.blane.ID,
		CustomerID:           f.customer.ID,
		VendorID:             &f.vendor.ID,
		Date:                 time.Now().AddDate(0, 0, 2),
		Quantity:             1,
		PaymentMethod:        enums.PaymentMethodOnline,
		Status:               enums.ReservationStatusPending,
		TotalPrice:           dec("50.00"),
		CancelToken:          "t",
		CancelTokenCreatedAt: time.Now(),
	}
	require.NoError(t, f.db.Create(reservation).Error)

	result := f.svc.HandleCallback(context.Background(), approvedForm(t, reservation.Code, "TX-9"))
	require.True(t, result.Captured)

	var reloaded models.Reservation
	require.NoError(t, f.db.First(&reloaded, "id = ?", reservation.ID).Error)
	assert.Equal(t, enums.ReservationStatusPaid, reloaded.Status)

	var transaction models.Transaction
	require.NoError(t, f.db.First(&transaction, "gateway_trans_id = ?", "TX-9").Error)
	require.NotNil(t, transaction.ReservationID)
	assert.Nil(t, transaction.OrderID)
}
