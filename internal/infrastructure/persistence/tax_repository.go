package persistence

import (
	"context"

	"github.com/storefront/backend/internal/domain/tax"
	"gorm.io/gorm"
)

// GormTaxRepository implements tax.Repository using GORM. The engine only
// reads tax configuration; rows are maintained elsewhere.
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// FindActiveClasses returns all active tax classes
func (r *GormTaxRepository) FindActiveClasses(ctx context.Context) ([]tax.TaxClass, error) {
	var classes []tax.TaxClass
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code").
		Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

// FindActiveRates returns all rates of active classes. Rates with a future
// or past effective window are included; effectiveness is evaluated per
// pricing request.
func (r *GormTaxRepository) FindActiveRates(ctx context.Context) ([]tax.TaxRate, error) {
	var rates []tax.TaxRate
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority DESC, code").
		Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// FindActiveRules returns all active rules ordered by priority descending
func (r *GormTaxRepository) FindActiveRules(ctx context.Context) ([]tax.TaxRule, error) {
	var rules []tax.TaxRule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority DESC, id").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
