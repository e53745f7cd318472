package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"appliance-reserve-backend/internal/model"
)

// Store defines the interface for all database operations on appliances.
type Store interface {
	DB() *gorm.DB
	GetAll(ctx context.Context) ([]model.Appliance, error)
	// GetByID returns nil (and no error) when the id is unknown.
	GetByID(ctx context.Context, id int64) (*model.Appliance, error)
	ApplyReservation(ctx context.Context, id int64, end time.Time, now time.Time) (*model.Appliance, error)
	ClearReservation(ctx context.Context, id int64, now time.Time) (*model.Appliance, error)
	// ListExpired returns every appliance whose reservation end is at or
	// before the given instant.
	ListExpired(ctx context.Context, now time.Time) ([]model.Appliance, error)
	// BulkClearExpired clears the reservation end of all given ids in a
	// single batch and reports how many rows changed.
	BulkClearExpired(ctx context.Context, ids []int64, now time.Time) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) GetAll(ctx context.Context) ([]model.Appliance, error) {
	var appliances []model.Appliance
	if err := s.db.WithContext(ctx).Order("id").Find(&appliances).Error; err != nil {
		return nil, wrapUnavailable("fetch appliances", err)
	}
	return appliances, nil
}

func (s *gormStore) GetByID(ctx context.Context, id int64) (*model.Appliance, error) {
	var appliance model.Appliance
	err := s.db.WithContext(ctx).First(&appliance, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapUnavailable(fmt.Sprintf("fetch appliance %d", id), err)
	}
	return &appliance, nil
}

func (s *gormStore) ApplyReservation(ctx context.Context, id int64, end time.Time, now time.Time) (*model.Appliance, error) {
	return s.setReservationEnd(ctx, id, &end, now)
}

func (s *gormStore) ClearReservation(ctx context.Context, id int64, now time.Time) (*model.Appliance, error) {
	return s.setReservationEnd(ctx, id, nil, now)
}

// setReservationEnd performs a single-row update; the row update itself is
// the only isolation between racing callers (last writer wins).
func (s *gormStore) setReservationEnd(ctx context.Context, id int64, end *time.Time, now time.Time) (*model.Appliance, error) {
	res := s.db.WithContext(ctx).Model(&model.Appliance{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reservation_end": end,
			"updated_at":      now,
		})
	if res.Error != nil {
		return nil, wrapUnavailable(fmt.Sprintf("update appliance %d", id), res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

func (s *gormStore) ListExpired(ctx context.Context, now time.Time) ([]model.Appliance, error) {
	var expired []model.Appliance
	err := s.db.WithContext(ctx).
		Where("reservation_end IS NOT NULL AND reservation_end <= ?", now).
		Order("id").
		Find(&expired).Error
	if err != nil {
		return nil, wrapUnavailable("fetch expired appliances", err)
	}
	return expired, nil
}

func (s *gormStore) BulkClearExpired(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var cleared int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Appliance{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"reservation_end": nil,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		cleared = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable("bulk clear expired reservations", err)
	}
	return cleared, nil
}

func wrapUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
