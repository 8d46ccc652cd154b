package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/domain/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database with the pricing schema, for
// exercising the repositories against a real SQL engine instead of mocks.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_fk=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&tax.TaxClass{}, &tax.TaxRate{}, &tax.TaxRule{},
		&shipping.Zone{}, &shipping.Carrier{}, &shipping.Method{},
		&shipping.Blackout{}, &shipping.Settings{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestTaxRepositoryRoundtrip(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormTaxRepository(db)

	standard, err := tax.NewTaxClass("STANDARD", "Standard rate", decimal.RequireFromString("0.20"))
	require.NoError(t, err)
	reduced, err := tax.NewTaxClass("REDUCED", "Reduced rate", decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	retired, err := tax.NewTaxClass("RETIRED", "Old rate", decimal.RequireFromString("0.18"))
	require.NoError(t, err)
	retired.IsActive = false
	require.NoError(t, db.Create([]*tax.TaxClass{standard, reduced, retired}).Error)

	t.Run("classes exclude inactive rows and sort by code", func(t *testing.T) {
		classes, err := repo.FindActiveClasses(ctx)
		require.NoError(t, err)
		require.Len(t, classes, 2)
		assert.Equal(t, "REDUCED", classes[0].Code)
		assert.Equal(t, "STANDARD", classes[1].Code)
	})

	t.Run("rules come back priority-descending with conditions intact", func(t *testing.T) {
		rate, err := tax.NewTaxRate(standard.ID, "VAT_STANDARD", decimal.RequireFromString("0.20"), tax.RateTypePercentage)
		require.NoError(t, err)
		require.NoError(t, db.Create(rate).Error)

		low := tax.TaxRule{
			BaseEntity: shared.NewBaseEntity(),
			TaxRateID:  rate.ID,
			EntityType: tax.EntityTypeProduct,
			Priority:   10,
			IsActive:   true,
		}
		high := tax.TaxRule{
			BaseEntity: shared.NewBaseEntity(),
			TaxRateID:  rate.ID,
			EntityType: tax.EntityTypeProduct,
			Priority:   90,
			IsActive:   true,
			Conditions: tax.Conditions{{Kind: tax.ConditionKindAttribute, Key: "category_type", Value: "food"}},
		}
		require.NoError(t, db.Create([]tax.TaxRule{low, high}).Error)

		rules, err := repo.FindActiveRules(ctx)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, 90, rules[0].Priority)
		require.Len(t, rules[0].Conditions, 1)
		assert.Equal(t, "food", rules[0].Conditions[0].Value)
	})
}

func TestShippingRepositoryRoundtrip(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormShippingRepository(db)

	zone, err := shipping.NewZone("istanbul", "IST", "İstanbul", shipping.ZoneTypePostalCode)
	require.NoError(t, err)
	zone.Countries = shipping.StringList{"TR"}
	zone.PostalCodeRanges = shipping.PostalCodeRanges{{Min: "34000", Max: "34999"}}
	require.NoError(t, db.Create(zone).Error)

	carrier, err := shipping.NewCarrier("ARAS", "Aras Kargo")
	require.NoError(t, err)
	require.NoError(t, db.Create(carrier).Error)

	method, err := shipping.NewMethod(carrier.ID, zone.ID, "STD", "Standard delivery", shipping.CalcMethodFlat)
	require.NoError(t, err)
	method.BaseFee = decimal.RequireFromString("15.00")
	threshold := decimal.RequireFromString("300.00")
	method.FreeThreshold = &threshold
	require.NoError(t, db.Create(method).Error)

	t.Run("zone JSON columns survive the roundtrip", func(t *testing.T) {
		zones, err := repo.FindActiveZones(ctx)
		require.NoError(t, err)
		require.Len(t, zones, 1)
		assert.Equal(t, shipping.StringList{"TR"}, zones[0].Countries)
		require.Len(t, zones[0].PostalCodeRanges, 1)
		assert.True(t, zones[0].PostalCodeRanges[0].Contains("34710"))
	})

	t.Run("method decimals and thresholds survive the roundtrip", func(t *testing.T) {
		methods, err := repo.FindActiveMethods(ctx)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.True(t, methods[0].BaseFee.Equal(decimal.RequireFromString("15.00")))
		require.NotNil(t, methods[0].FreeThreshold)
		assert.True(t, methods[0].FreeThreshold.Equal(threshold))
	})

	t.Run("retired method is stored inactive and excluded", func(t *testing.T) {
		old, err := shipping.NewMethod(carrier.ID, zone.ID, "OLD", "Retired delivery", shipping.CalcMethodFlat)
		require.NoError(t, err)
		old.IsActive = false
		require.NoError(t, db.Create(old).Error)

		var stored shipping.Method
		require.NoError(t, db.First(&stored, "id = ?", old.ID).Error)
		assert.False(t, stored.IsActive)

		methods, err := repo.FindActiveMethods(ctx)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.Equal(t, "STD", methods[0].Code)
	})

	t.Run("settings fall back to disabled defaults when no row exists", func(t *testing.T) {
		settings, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.False(t, settings.FreeEnabled)
		assert.Equal(t, "TR", settings.HomeCountryCode)
	})

	t.Run("settings row is returned once configured", func(t *testing.T) {
		row := shipping.DefaultSettings()
		row.CODEnabled = true
		row.CODExtraFee = decimal.RequireFromString("7.50")
		require.NoError(t, db.Create(&row).Error)

		settings, err := repo.GetSettings(ctx)
		require.NoError(t, err)
		assert.True(t, settings.CODEnabled)
		assert.True(t, settings.CODExtraFee.Equal(decimal.RequireFromString("7.50")))
	})
}
