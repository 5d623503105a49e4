package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amineouhani/blanes-backend/internal/commission"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
	pkgerrors "github.com/amineouhani/blanes-backend/pkg/errors"
	"github.com/amineouhani/blanes-backend/pkg/logger"
	"github.com/amineouhani/blanes-backend/pkg/pagination"
)

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.VendorPayment{}, &models.VendorPaymentLog{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(gormTx{db: db}, NewRepository(db), logger.New(logger.Options{ServiceName: "ledger-test"}))
	require.NoError(t, err)
	return svc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func captureInput(vendorID uuid.UUID) CaptureInput {
	orderID := uuid.New()
	return CaptureInput{
		VendorID:    vendorID,
		OrderID:     &orderID,
		Total:       dec("210.00"),
		PaymentType: enums.PaymentTypeFull,
		Breakdown: commission.Breakdown{
			RateApplied:       dec("10"),
			CommissionExclVAT: dec("21.00"),
			CommissionVAT:     dec("4.20"),
			CommissionInclVAT: dec("25.20"),
			NetAmount:         dec("184.80"),
		},
		PaymentDate: time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC),
	}
}

func TestCreateFromCapture(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	var payment *models.VendorPayment
	err := db.Transaction(func(tx *gorm.DB) error {
		var terr error
		payment, terr = svc.CreateFromCapture(context.Background(), tx, captureInput(uuid.New()))
		return terr
	})
	require.NoError(t, err)

	assert.Equal(t, enums.TransferStatusPending, payment.TransferStatus)
	assert.Equal(t, "2026-08-24", payment.WeekStart.Format("2006-01-02"))
	assert.Equal(t, "2026-08-30", payment.WeekEnd.Format("2006-01-02"))
	assert.True(t, payment.NetAmountTTC.Add(payment.CommissionInclVAT).Equal(payment.TotalAmountTTC))
}

func TestCreateFromCapture_RequiresExactlyOneTarget(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	input := captureInput(uuid.New())
	input.OrderID = nil

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := svc.CreateFromCapture(context.Background(), tx, input)
		return terr
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	both := captureInput(uuid.New())
	resID := uuid.New()
	both.ReservationID = &resID
	err = db.Transaction(func(tx *gorm.DB) error {
		_, terr := svc.CreateFromCapture(context.Background(), tx, both)
		return terr
	})
	require.Error(t, err)
}

func seedPayments(t *testing.T, db *gorm.DB, svc Service, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			payment, terr := svc.CreateFromCapture(context.Background(), tx, captureInput(uuid.New()))
			if terr != nil {
				return terr
			}
			ids = append(ids, payment.ID)
			return nil
		})
		require.NoError(t, err)
	}
	return ids
}

func TestMarkProcessed(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ids := seedPayments(t, db, svc, 3)
	adminID := uuid.New()
	transferDate := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	affected, err := svc.MarkProcessed(context.Background(), ids, adminID, transferDate, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	var rows []models.VendorPayment
	require.NoError(t, db.Find(&rows).Error)
	for _, row := range rows {
		assert.Equal(t, enums.TransferStatusProcessed, row.TransferStatus)
		require.NotNil(t, row.TransferDate)
	}

	var log models.VendorPaymentLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, enums.TransferStatusPending, log.PreviousStatus)
	assert.Equal(t, enums.TransferStatusProcessed, log.NewStatus)
	assert.Equal(t, adminID, log.AdminID)
	assert.Equal(t, 3, log.AffectedCount)
	assert.Nil(t, log.VendorPaymentID, "bulk log carries no single payment id")
}

func TestMarkProcessed_AlreadyProcessed(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ids := seedPayments(t, db, svc, 1)
	adminID := uuid.New()

	_, err := svc.MarkProcessed(context.Background(), ids, adminID, time.Now(), nil)
	require.NoError(t, err)

	_, err = svc.MarkProcessed(context.Background(), ids, adminID, time.Now(), nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestMarkComplete(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ids := seedPayments(t, db, svc, 2)
	adminID := uuid.New()

	_, err := svc.MarkProcessed(context.Background(), ids, adminID, time.Now(), nil)
	require.NoError(t, err)

	note := "bank confirmation 1881"
	affected, err := svc.MarkComplete(context.Background(), ids, adminID, &note)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	var rows []models.VendorPayment
	require.NoError(t, db.Find(&rows).Error)
	for _, row := range rows {
		assert.Equal(t, enums.TransferStatusComplete, row.TransferStatus)
	}

	var log models.VendorPaymentLog
	require.NoError(t, db.Where("new_status = ?", enums.TransferStatusComplete).First(&log).Error)
	assert.Equal(t, enums.TransferStatusProcessed, log.PreviousStatus)
	assert.Equal(t, adminID, log.AdminID)
	assert.Equal(t, 2, log.AffectedCount)
	require.NotNil(t, log.Note)
	assert.Equal(t, note, *log.Note)
}

func TestMarkComplete_RequiresProcessed(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ids := seedPayments(t, db, svc, 1)

	_, err := svc.MarkComplete(context.Background(), ids, uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestRevert(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ids := seedPayments(t, db, svc, 1)
	adminID := uuid.New()

	_, err := svc.MarkProcessed(context.Background(), ids, adminID, time.Now(), nil)
	require.NoError(t, err)

	affected, err := svc.Revert(context.Background(), ids, adminID, "wrong batch")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	var row models.VendorPayment
	require.NoError(t, db.First(&row, "id = ?", ids[0]).Error)
	assert.Equal(t, enums.TransferStatusPending, row.TransferStatus)
	assert.Nil(t, row.TransferDate)

	var logs []models.VendorPaymentLog
	require.NoError(t, db.Order("created_at ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	revertLog := logs[1]
	assert.Equal(t, enums.TransferStatusPending, revertLog.NewStatus)
	require.NotNil(t, revertLog.Note)
	assert.Equal(t, "wrong batch", *revertLog.Note)
	require.NotNil(t, revertLog.VendorPaymentID)
	assert.Equal(t, ids[0], *revertLog.VendorPaymentID)
}

func TestRevert_LogsActualPreviousStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ids := seedPayments(t, db, svc, 2)
	adminID := uuid.New()

	_, err := svc.MarkProcessed(context.Background(), ids, adminID, time.Now(), nil)
	require.NoError(t, err)
	// Move only the first line on to complete so the batch spans both states.
	_, err = svc.MarkComplete(context.Background(), ids[:1], adminID, nil)
	require.NoError(t, err)

	affected, err := svc.Revert(context.Background(), ids, adminID, "duplicate batch")
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	var logs []models.VendorPaymentLog
	require.NoError(t, db.Where("new_status = ?", enums.TransferStatusPending).Find(&logs).Error)
	require.Len(t, logs, 2)

	previous := map[enums.TransferStatus]int{}
	for _, log := range logs {
		previous[log.PreviousStatus] = log.AffectedCount
	}
	assert.Equal(t, 1, previous[enums.TransferStatusProcessed])
	assert.Equal(t, 1, previous[enums.TransferStatusComplete])
}

func TestRevert_RequiresNote(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ids := seedPayments(t, db, svc, 1)

	_, err := svc.Revert(context.Background(), ids, uuid.New(), "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestList_FiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	vendorID := uuid.New()
	var keptIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			payment, terr := svc.CreateFromCapture(context.Background(), tx, captureInput(vendorID))
			if terr != nil {
				return terr
			}
			keptIDs = append(keptIDs, payment.ID)
			return nil
		})
		require.NoError(t, err)
	}
	seedPayments(t, db, svc, 2)

	rows, next, err := svc.List(context.Background(), ListFilter{VendorID: &vendorID}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.NotEmpty(t, next)

	rest, _, err := svc.List(context.Background(), ListFilter{VendorID: &vendorID}, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	status := enums.TransferStatusProcessed
	none, _, err := svc.List(context.Background(), ListFilter{Status: &status}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
