package capacity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amineouhani/blanes-backend/pkg/db/models"
	"github.com/amineouhani/blanes-backend/pkg/enums"
)

// Repository exposes the capacity aggregates the admission engine reads.
// Sums exclude only the canonical cancelled status; actor-specific cancel
// variants are intentionally not folded in here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockBlane(ctx context.Context, id uuid.UUID) (*models.Blane, error)
	OrderedQuantityOn(ctx context.Context, blaneID uuid.UUID, day time.Time) (int, error)
	OrderedQuantityTotal(ctx context.Context, blaneID uuid.UUID) (int, error)
	ReservedQuantityOn(ctx context.Context, blaneID uuid.UUID, day time.Time) (int, error)
	ReservedQuantityForSlot(ctx context.Context, blaneID uuid.UUID, day time.Time, slot string) (int, error)
	ReservedQuantityForRange(ctx context.Context, blaneID uuid.UUID, day, endDay time.Time) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a capacity repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockBlane loads the blane under FOR UPDATE so concurrent admissions for the
// same blane serialize on the capacity-bearing row. SQLite has no row locks;
// writers there serialize on the database lock instead.
func (r *repository) LockBlane(ctx context.Context, id uuid.UUID) (*models.Blane, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var blane models.Blane
	if err := q.Where("id = ?", id).First(&blane).Error; err != nil {
		return nil, err
	}
	return &blane, nil
}

func (r *repository) OrderedQuantityOn(ctx context.Context, blaneID uuid.UUID, day time.Time) (int, error) {
	start, end := dayBounds(day)
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("blane_id = ? AND status <> ? AND created_at >= ? AND created_at < ?",
			blaneID, enums.OrderStatusCancelled, start, end).
		Scan(&total).Error
	return int(total), err
}

func (r *repository) OrderedQuantityTotal(ctx context.Context, blaneID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("blane_id = ? AND status <> ?", blaneID, enums.OrderStatusCancelled).
		Scan(&total).Error
	return int(total), err
}

func (r *repository) ReservedQuantityOn(ctx context.Context, blaneID uuid.UUID, day time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("blane_id = ? AND status <> ? AND date = ?",
			blaneID, enums.ReservationStatusCancelled, dateOnly(day)).
		Scan(&total).Error
	return int(total), err
}

func (r *repository) ReservedQuantityForSlot(ctx context.Context, blaneID uuid.UUID, day time.Time, slot string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("blane_id = ? AND status <> ? AND date = ? AND time = ?",
			blaneID, enums.ReservationStatusCancelled, dateOnly(day), slot).
		Scan(&total).Error
	return int(total), err
}

func (r *repository) ReservedQuantityForRange(ctx context.Context, blaneID uuid.UUID, day, endDay time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("blane_id = ? AND status <> ? AND date = ? AND end_date = ?",
			blaneID, enums.ReservationStatusCancelled, dateOnly(day), dateOnly(endDay)).
		Scan(&total).Error
	return int(total), err
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := dateOnly(day)
	return start, start.AddDate(0, 0, 1)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
