package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a GORM connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormTaxRepository_FindActiveClasses(t *testing.T) {
	t.Run("returns active classes", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTaxRepository(db)

		classID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "code", "name", "default_rate", "is_active"}).
			AddRow(classID, "STANDARD", "Standard goods", decimal.NewFromFloat(0.20), true)

		mock.ExpectQuery(`SELECT \* FROM "tax_classes" WHERE is_active = \$1 ORDER BY code`).
			WithArgs(true).
			WillReturnRows(rows)

		classes, err := repo.FindActiveClasses(context.Background())
		require.NoError(t, err)
		require.Len(t, classes, 1)
		assert.Equal(t, classID, classes[0].ID)
		assert.Equal(t, "STANDARD", classes[0].Code)
		assert.Equal(t, "0.2", classes[0].DefaultRate.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates query errors", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTaxRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "tax_classes"`).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.FindActiveClasses(context.Background())
		require.Error(t, err)
	})
}

func TestGormTaxRepository_FindActiveRates(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormTaxRepository(db)

	classID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "tax_class_id", "code", "rate", "rate_type", "is_compound", "priority", "is_active"}).
		AddRow(uuid.New(), classID, "VAT_STANDARD", decimal.NewFromFloat(0.20), "percentage", false, 50, true).
		AddRow(uuid.New(), classID, "VAT_REDUCED", decimal.NewFromFloat(0.10), "percentage", false, 80, true)

	mock.ExpectQuery(`SELECT \* FROM "tax_rates" WHERE is_active = \$1 ORDER BY priority DESC, code`).
		WithArgs(true).
		WillReturnRows(rows)

	rates, err := repo.FindActiveRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, classID, rates[0].TaxClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTaxRepository_FindActiveRules(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormTaxRepository(db)

	rateID := uuid.New()
	conditions := `[{"kind":"attribute","key":"category_type","value":"food"}]`
	rows := sqlmock.NewRows([]string{"id", "tax_rate_id", "entity_type", "priority", "stop_processing", "conditions", "is_active"}).
		AddRow(uuid.New(), rateID, "product", 80, true, conditions, true)

	mock.ExpectQuery(`SELECT \* FROM "tax_rules" WHERE is_active = \$1 ORDER BY priority DESC, id`).
		WithArgs(true).
		WillReturnRows(rows)

	rules, err := repo.FindActiveRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rateID, rules[0].TaxRateID)
	assert.True(t, rules[0].StopProcessing)
	require.Len(t, rules[0].Conditions, 1)
	assert.Equal(t, "category_type", rules[0].Conditions[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}
