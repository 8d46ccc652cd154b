package persistence

import (
	"context"
	"errors"

	"github.com/storefront/backend/internal/domain/shipping"
	"gorm.io/gorm"
)

// GormShippingRepository implements shipping.Repository using GORM. It
// loads full active configuration sets for snapshot building.
type GormShippingRepository struct {
	db *gorm.DB
}

// NewGormShippingRepository creates a new GormShippingRepository
func NewGormShippingRepository(db *gorm.DB) *GormShippingRepository {
	return &GormShippingRepository{db: db}
}

// FindActiveZones returns all active shipping zones
func (r *GormShippingRepository) FindActiveZones(ctx context.Context) ([]shipping.Zone, error) {
	var zones []shipping.Zone
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order, slug").
		Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

// FindActiveCarriers returns all active carriers
func (r *GormShippingRepository) FindActiveCarriers(ctx context.Context) ([]shipping.Carrier, error) {
	var carriers []shipping.Carrier
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code").
		Find(&carriers).Error; err != nil {
		return nil, err
	}
	return carriers, nil
}

// FindActiveMethods returns all active shipping methods
func (r *GormShippingRepository) FindActiveMethods(ctx context.Context) ([]shipping.Method, error) {
	var methods []shipping.Method
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order, code").
		Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// FindActiveBlackouts returns all active blackouts. Dated blackouts outside
// their window are included; effectiveness is evaluated per request.
func (r *GormShippingRepository) FindActiveBlackouts(ctx context.Context) ([]shipping.Blackout, error) {
	var blackouts []shipping.Blackout
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		Find(&blackouts).Error; err != nil {
		return nil, err
	}
	return blackouts, nil
}

// GetSettings returns the global shipping settings record, or the disabled
// defaults when none is configured yet
func (r *GormShippingRepository) GetSettings(ctx context.Context) (shipping.Settings, error) {
	var settings shipping.Settings
	if err := r.db.WithContext(ctx).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shipping.DefaultSettings(), nil
		}
		return shipping.Settings{}, err
	}
	return settings, nil
}
