package pricing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/domain/tax"
	infrastrategy "github.com/storefront/backend/internal/infrastructure/strategy"
	"go.uber.org/zap"
)

// staticSnapshots hands every request the same snapshot
type staticSnapshots struct {
	snap *Snapshot
}

func (p staticSnapshots) Current(context.Context) (*Snapshot, error) {
	return p.snap, nil
}

// pipelineFixture is a complete small configuration: standard 20% VAT plus
// a reduced 10% food rule, an İstanbul postal zone with Aras Kargo's flat
// 15.00 method (free over 300, taxed as standard), and a nationwide zone.
type pipelineFixture struct {
	input SnapshotInput

	standardClass tax.TaxClass
	istanbulZone  *shipping.Zone
	carrier       *shipping.Carrier
	istanbulStd   *shipping.Method
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{}

	standard, err := tax.NewTaxClass("STANDARD", "Standard goods", dec(t, "0.20"))
	require.NoError(t, err)
	f.standardClass = *standard

	vatStandard, err := tax.NewTaxRate(standard.ID, "VAT_STANDARD", dec(t, "0.20"), tax.RateTypePercentage)
	require.NoError(t, err)
	vatReduced, err := tax.NewTaxRate(standard.ID, "VAT_REDUCED", dec(t, "0.10"), tax.RateTypePercentage)
	require.NoError(t, err)

	standardRule := tax.TaxRule{
		BaseEntity: shared.NewBaseEntity(),
		TaxRateID:  vatStandard.ID,
		EntityType: tax.EntityTypeProduct,
		Priority:   50,
		IsActive:   true,
	}
	foodRule := tax.TaxRule{
		BaseEntity:     shared.NewBaseEntity(),
		TaxRateID:      vatReduced.ID,
		EntityType:     tax.EntityTypeProduct,
		Priority:       80,
		StopProcessing: true,
		Conditions: tax.Conditions{
			{Kind: tax.ConditionKindAttribute, Key: "category_type", Value: "food"},
		},
		IsActive: true,
	}
	shippingRule := tax.TaxRule{
		BaseEntity: shared.NewBaseEntity(),
		TaxRateID:  vatStandard.ID,
		EntityType: tax.EntityTypeShipping,
		Priority:   50,
		IsActive:   true,
	}

	istanbul, err := shipping.NewZone("turkiye-istanbul", "TR-IST", "İstanbul", shipping.ZoneTypePostalCode)
	require.NoError(t, err)
	istanbul.Countries = shipping.StringList{"TR"}
	istanbul.PostalCodeRanges = shipping.PostalCodeRanges{{Min: "34000", Max: "34999"}}
	f.istanbulZone = istanbul

	turkiye, err := shipping.NewZone("turkiye", "TR", "Türkiye", shipping.ZoneTypeCountry)
	require.NoError(t, err)
	turkiye.Countries = shipping.StringList{"TR"}
	turkiye.SortOrder = 10

	carrier, err := shipping.NewCarrier("ARAS", "Aras Kargo")
	require.NoError(t, err)
	carrier.SupportsCOD = true
	f.carrier = carrier

	istanbulStd, err := shipping.NewMethod(carrier.ID, istanbul.ID, "STD", "Standart Teslimat", shipping.CalcMethodFlat)
	require.NoError(t, err)
	istanbulStd.BaseFee = dec(t, "15.00")
	threshold := dec(t, "300")
	istanbulStd.FreeThreshold = &threshold
	istanbulStd.IsTaxable = true
	istanbulStd.TaxClassID = &standard.ID
	f.istanbulStd = istanbulStd

	turkiyeStd, err := shipping.NewMethod(carrier.ID, turkiye.ID, "STD", "Standart Teslimat", shipping.CalcMethodFlat)
	require.NoError(t, err)
	turkiyeStd.BaseFee = dec(t, "25.00")

	f.input = SnapshotInput{
		TaxClasses: []tax.TaxClass{*standard},
		TaxRates:   []tax.TaxRate{*vatStandard, *vatReduced},
		TaxRules:   []tax.TaxRule{standardRule, foodRule, shippingRule},
		Zones:      []shipping.Zone{*istanbul, *turkiye},
		Carriers:   []shipping.Carrier{*carrier},
		Methods:    []shipping.Method{*istanbulStd, *turkiyeStd},
		Settings:   shipping.DefaultSettings(),
	}
	return f
}

func (f *pipelineFixture) service(t *testing.T) *Service {
	t.Helper()
	registry, err := infrastrategy.NewRegistryWithDefaults()
	require.NoError(t, err)

	snap := BuildSnapshot(f.input, registry, zap.NewNop())
	require.Empty(t, snap.Issues())
	return NewService(staticSnapshots{snap: snap}, zap.NewNop())
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func (f *pipelineFixture) priceRequest(t *testing.T) PriceOrderRequest {
	t.Helper()
	foodID := uuid.New()
	asOf := time.Unix(1700000000, 0).UTC()
	return PriceOrderRequest{
		Address:        valueobject.MustNewAddress("TR", "İstanbul", "Kadıköy", "34710"),
		ChosenMethodID: &f.istanbulStd.ID,
		AsOf:           &asOf,
		Lines: []OrderLineRequest{
			{
				ProductID:  &foodID,
				Name:       "Zeytinyağı 1L",
				UnitPrice:  dec(t, "50"),
				Quantity:   2,
				Weight:     dec(t, "0.5"),
				TaxClassID: f.standardClass.ID,
				Attributes: map[string]string{"category_type": "food"},
			},
			{
				Name:       "Çaydanlık",
				UnitPrice:  dec(t, "75"),
				Quantity:   2,
				Weight:     dec(t, "0.5"),
				TaxClassID: f.standardClass.ID,
			},
		},
	}
}

func TestServicePrice(t *testing.T) {
	f := newPipelineFixture(t)
	svc := f.service(t)

	t.Run("full quote with chosen method", func(t *testing.T) {
		priced, err := svc.Price(context.Background(), f.priceRequest(t))
		require.NoError(t, err)

		// Lines: food 100.00 at 10%, standard 150.00 at 20%
		require.Len(t, priced.Lines, 2)
		assert.Equal(t, "100.00", priced.Lines[0].LineTotal.StringFixed(2))
		assert.Equal(t, "10.00", priced.Lines[0].TaxAmount.StringFixed(2))
		assert.False(t, priced.Lines[0].TaxFromDefault)
		assert.Equal(t, "150.00", priced.Lines[1].LineTotal.StringFixed(2))
		assert.Equal(t, "30.00", priced.Lines[1].TaxAmount.StringFixed(2))

		assert.Equal(t, "250.00", priced.Subtotal.StringFixed(2))
		assert.Equal(t, "40.00", priced.TaxTotal.StringFixed(2))

		// Subtotal 250 is under the 300 free threshold: base fee applies,
		// taxed through the method's own class at 20%
		require.NotNil(t, priced.Shipping)
		assert.Equal(t, "STD", priced.Shipping.MethodCode)
		assert.Equal(t, "turkiye-istanbul", priced.Shipping.ZoneSlug)
		assert.Equal(t, "15.00", priced.Shipping.Fee.StringFixed(2))
		assert.Equal(t, "3.00", priced.ShippingTax.StringFixed(2))

		// 250 + 40 + 15 + 3
		assert.Equal(t, "308.00", priced.GrandTotal.StringFixed(2))
		assert.False(t, priced.NoShippingAvailable)
	})

	t.Run("subtotal over the threshold ships free", func(t *testing.T) {
		req := f.priceRequest(t)
		req.Lines[1].UnitPrice = dec(t, "110") // subtotal 100 + 220 = 320

		priced, err := svc.Price(context.Background(), req)
		require.NoError(t, err)

		require.NotNil(t, priced.Shipping)
		assert.Equal(t, "0.00", priced.Shipping.Fee.StringFixed(2))
		assert.Equal(t, "0.00", priced.ShippingTax.StringFixed(2))
		// 320 + (10 + 44)
		assert.Equal(t, "374.00", priced.GrandTotal.StringFixed(2))
	})

	t.Run("no chosen method surfaces the ranked list", func(t *testing.T) {
		req := f.priceRequest(t)
		req.ChosenMethodID = nil

		priced, err := svc.Price(context.Background(), req)
		require.NoError(t, err)

		assert.Nil(t, priced.Shipping)
		require.NotEmpty(t, priced.ShippingOptions)
		assert.Equal(t, "turkiye-istanbul", priced.ShippingOptions[0].ZoneSlug)
		// Grand total carries no shipping until a method is chosen
		assert.Equal(t, "290.00", priced.GrandTotal.StringFixed(2))
	})

	t.Run("ineligible chosen method surfaces the ranked list", func(t *testing.T) {
		req := f.priceRequest(t)
		retired := uuid.New()
		req.ChosenMethodID = &retired

		priced, err := svc.Price(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, priced.Shipping)
		assert.NotEmpty(t, priced.ShippingOptions)
	})

	t.Run("unsupported country reports no shipping available", func(t *testing.T) {
		req := f.priceRequest(t)
		req.Address = valueobject.MustNewAddress("JP", "", "Tokyo", "1000001")

		priced, err := svc.Price(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, priced.NoShippingAvailable)
		assert.Nil(t, priced.Shipping)
		assert.Empty(t, priced.ShippingOptions)
		// Tax still priced: 250 + 40
		assert.Equal(t, "290.00", priced.GrandTotal.StringFixed(2))
	})

	t.Run("unknown tax class fails the request", func(t *testing.T) {
		req := f.priceRequest(t)
		req.Lines[0].TaxClassID = uuid.New()

		_, err := svc.Price(context.Background(), req)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNKNOWN_TAX_CLASS", domainErr.Code)
	})

	t.Run("empty order is rejected", func(t *testing.T) {
		_, err := svc.Price(context.Background(), PriceOrderRequest{
			Address: valueobject.MustNewAddress("TR", "", "", "34710"),
		})
		require.Error(t, err)
	})
}

func TestServicePriceSurvivesBrokenMethodConfig(t *testing.T) {
	// An active table rate method with no breakpoints is flagged when the
	// snapshot builds and never aborts a quote: the remaining methods
	// still price the order.
	f := newPipelineFixture(t)
	broken, err := shipping.NewMethod(f.carrier.ID, f.istanbulZone.ID, "TBL", "Tablolu Teslimat", shipping.CalcMethodTableRate)
	require.NoError(t, err)
	f.input.Methods = append(f.input.Methods, *broken)

	registry, err := infrastrategy.NewRegistryWithDefaults()
	require.NoError(t, err)
	snap := BuildSnapshot(f.input, registry, zap.NewNop())
	require.Len(t, snap.Issues(), 1)
	assert.Contains(t, snap.Issues()[0].Reason, "breakpoint")

	svc := NewService(staticSnapshots{snap: snap}, zap.NewNop())
	priced, err := svc.Price(context.Background(), f.priceRequest(t))
	require.NoError(t, err)
	require.NotNil(t, priced.Shipping)
	assert.Equal(t, "STD", priced.Shipping.MethodCode)
	assert.Equal(t, "308.00", priced.GrandTotal.StringFixed(2))
}

func TestServicePriceDeterminism(t *testing.T) {
	f := newPipelineFixture(t)
	svc := f.service(t)
	req := f.priceRequest(t)

	first, err := svc.Price(context.Background(), req)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for range 10 {
		again, err := svc.Price(context.Background(), req)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, firstJSON, againJSON)
	}
}

func TestServiceResolveShippingOptions(t *testing.T) {
	f := newPipelineFixture(t)
	svc := f.service(t)

	t.Run("ranked options for a covered address", func(t *testing.T) {
		resp, err := svc.ResolveShippingOptions(context.Background(), ShippingOptionsRequest{
			Address:  valueobject.MustNewAddress("TR", "İstanbul", "Kadıköy", "34710"),
			Subtotal: dec(t, "250"),
			Weight:   dec(t, "2"),
			Quantity: 3,
		})
		require.NoError(t, err)

		assert.False(t, resp.NoShippingAvailable)
		require.Len(t, resp.Options, 2)
		assert.Equal(t, "turkiye-istanbul", resp.Options[0].ZoneSlug)
		assert.Equal(t, "15.00", resp.Options[0].Fee.StringFixed(2))
		assert.Equal(t, "turkiye", resp.Options[1].ZoneSlug)
	})

	t.Run("uncovered address flags no shipping", func(t *testing.T) {
		resp, err := svc.ResolveShippingOptions(context.Background(), ShippingOptionsRequest{
			Address:  valueobject.MustNewAddress("JP", "", "Tokyo", "1000001"),
			Subtotal: dec(t, "250"),
		})
		require.NoError(t, err)

		assert.True(t, resp.NoShippingAvailable)
		assert.Empty(t, resp.Options)
	})
}

func TestServiceResolveTax(t *testing.T) {
	f := newPipelineFixture(t)
	svc := f.service(t)

	t.Run("food attribute selects the reduced stopping rule", func(t *testing.T) {
		resp, err := svc.ResolveTax(context.Background(), TaxQueryRequest{
			EntityType: string(tax.EntityTypeProduct),
			TaxClassID: f.standardClass.ID,
			Address:    valueobject.MustNewAddress("TR", "İstanbul", "Kadıköy", "34710"),
			Attributes: map[string]string{"category_type": "food"},
		})
		require.NoError(t, err)

		assert.Equal(t, "0.1", resp.Rate.String())
		assert.Len(t, resp.AppliedRuleIDs, 1)
		assert.False(t, resp.FromDefault)
	})

	t.Run("unknown entity type is rejected", func(t *testing.T) {
		_, err := svc.ResolveTax(context.Background(), TaxQueryRequest{
			EntityType: "warehouse",
			TaxClassID: f.standardClass.ID,
			Address:    valueobject.MustNewAddress("TR", "", "", ""),
		})
		require.Error(t, err)
	})
}
