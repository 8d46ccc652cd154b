package shipping

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Settings is the single global shipping settings record. It seeds
// engine-wide defaults used when a method omits its own values.
type Settings struct {
	shared.BaseEntity
	FreeEnabled     bool                 `gorm:"not null;default:false"`
	FreeThreshold   *decimal.Decimal     `gorm:"type:decimal(12,2)"`
	FlatRateEnabled bool                 `gorm:"not null;default:false"`
	FlatRateFee     decimal.Decimal      `gorm:"type:decimal(12,2);not null;default:0"`
	CODEnabled      bool                 `gorm:"column:cod_enabled;not null;default:false"`
	CODExtraFee     decimal.Decimal      `gorm:"column:cod_extra_fee;type:decimal(12,2);not null;default:0"`
	CurrencyCode    valueobject.Currency `gorm:"type:varchar(3);not null;default:'TRY'"`
	HomeCountryCode string               `gorm:"type:varchar(2);not null;default:'TR'"`
}

// TableName returns the table name for GORM
func (Settings) TableName() string {
	return "shipping_settings"
}

// DefaultSettings returns settings with everything disabled, used when no
// settings row has been configured yet.
func DefaultSettings() Settings {
	return Settings{
		BaseEntity:      shared.NewBaseEntity(),
		FlatRateFee:     decimal.Zero,
		CODExtraFee:     decimal.Zero,
		CurrencyCode:    valueobject.DefaultCurrency,
		HomeCountryCode: "TR",
	}
}

// EffectiveFreeThreshold returns the free-shipping threshold for a method:
// the method's own threshold when set, otherwise the global one when free
// shipping is enabled. Nil means no free shipping for this method.
func (s Settings) EffectiveFreeThreshold(m *Method) *decimal.Decimal {
	if m.FreeThreshold != nil {
		return m.FreeThreshold
	}
	if s.FreeEnabled && s.FreeThreshold != nil {
		return s.FreeThreshold
	}
	return nil
}

// EffectiveCODSurcharge returns the COD surcharge for a method: the
// method's own surcharge when set, otherwise the global extra fee when COD
// is enabled.
func (s Settings) EffectiveCODSurcharge(m *Method) decimal.Decimal {
	if m.CODSurcharge != nil {
		return *m.CODSurcharge
	}
	if s.CODEnabled {
		return s.CODExtraFee
	}
	return decimal.Zero
}
