package shipping

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// resolverFixture assembles a small Turkish shipping configuration: a
// postal-code zone for İstanbul, a country-wide fallback zone, and one
// carrier with a method in each.
type resolverFixture struct {
	istanbulZone *Zone
	turkiyeZone  *Zone
	carrier      *Carrier
	istanbulStd  *Method
	turkiyeStd   *Method
	blackouts    []Blackout
	settings     Settings
}

func newShippingFixture(t *testing.T) *resolverFixture {
	t.Helper()

	istanbul, err := NewZone("turkiye-istanbul", "TR-IST", "İstanbul", ZoneTypePostalCode)
	require.NoError(t, err)
	istanbul.Countries = StringList{"TR"}
	istanbul.PostalCodeRanges = PostalCodeRanges{{Min: "34000", Max: "34999"}}

	turkiye, err := NewZone("turkiye", "TR", "Türkiye", ZoneTypeCountry)
	require.NoError(t, err)
	turkiye.Countries = StringList{"TR"}
	turkiye.SortOrder = 10

	carrier, err := NewCarrier("ARAS", "Aras Kargo")
	require.NoError(t, err)
	carrier.SupportsCOD = true

	istanbulStd, err := NewMethod(carrier.ID, istanbul.ID, "STD", "Standart Teslimat", CalcMethodFlat)
	require.NoError(t, err)
	istanbulStd.BaseFee = dec(t, "15.00")
	threshold := dec(t, "300")
	istanbulStd.FreeThreshold = &threshold

	turkiyeStd, err := NewMethod(carrier.ID, turkiye.ID, "STD", "Standart Teslimat", CalcMethodFlat)
	require.NoError(t, err)
	turkiyeStd.BaseFee = dec(t, "25.00")

	return &resolverFixture{
		istanbulZone: istanbul,
		turkiyeZone:  turkiye,
		carrier:      carrier,
		istanbulStd:  istanbulStd,
		turkiyeStd:   turkiyeStd,
		settings:     DefaultSettings(),
	}
}

func (f *resolverFixture) resolver() *Resolver {
	fees := NewFeeCalculator(testFeeStrategies{}, f.settings)
	return NewResolver(
		[]Zone{*f.istanbulZone, *f.turkiyeZone},
		[]Carrier{*f.carrier},
		[]Method{*f.istanbulStd, *f.turkiyeStd},
		f.blackouts,
		f.settings,
		fees,
		zap.NewNop(),
	)
}

func istanbulAddress() valueobject.Address {
	return valueobject.MustNewAddress("TR", "İstanbul", "Kadıköy", "34710")
}

func istanbulCart(t *testing.T, subtotal string) CartContext {
	t.Helper()
	cart := cartWithSubtotal(t, subtotal)
	cart.Weight = dec(t, "2")
	return cart
}

func TestResolverZoneSelection(t *testing.T) {
	f := newShippingFixture(t)
	resolver := f.resolver()
	now := time.Now()

	t.Run("istanbul address ranks the postal zone first", func(t *testing.T) {
		quotes, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), now)
		require.NoError(t, err)
		require.NotEmpty(t, quotes)

		assert.Equal(t, "turkiye-istanbul", quotes[0].Zone.Slug)
		assert.Equal(t, "15.00 TRY", quotes[0].Fee.String())
	})

	t.Run("ankara address falls through to the country zone", func(t *testing.T) {
		addr := valueobject.MustNewAddress("TR", "Ankara", "Çankaya", "06420")
		quotes, err := resolver.Resolve(context.Background(), addr, istanbulCart(t, "250"), now)
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.Equal(t, "turkiye", quotes[0].Zone.Slug)
		assert.Equal(t, "25.00 TRY", quotes[0].Fee.String())
	})

	t.Run("unsupported country yields an empty result, not an error", func(t *testing.T) {
		addr := valueobject.MustNewAddress("JP", "", "Tokyo", "1000001")
		quotes, err := resolver.Resolve(context.Background(), addr, istanbulCart(t, "250"), now)
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})
}

func TestResolverFreeThresholdScenarios(t *testing.T) {
	// Aras Kargo's İstanbul method has free_threshold 300: a 250 cart
	// pays the 15.00 base fee, a 320 cart ships free.
	f := newShippingFixture(t)
	resolver := f.resolver()
	now := time.Now()

	t.Run("subtotal below threshold pays base fee", func(t *testing.T) {
		quotes, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), now)
		require.NoError(t, err)
		require.NotEmpty(t, quotes)
		assert.Equal(t, "15.00 TRY", quotes[0].Fee.String())
	})

	t.Run("subtotal above threshold ships free", func(t *testing.T) {
		quotes, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "320"), now)
		require.NoError(t, err)
		require.NotEmpty(t, quotes)
		assert.Equal(t, "0.00 TRY", quotes[0].Fee.String())
	})
}

func TestResolverBlackouts(t *testing.T) {
	f := newShippingFixture(t)
	blackout, err := NewBlackout(RestrictionTypePostalCode, "34")
	require.NoError(t, err)
	blackout.CarrierID = &f.carrier.ID
	blackout.IsPermanent = true
	f.blackouts = []Blackout{*blackout}

	resolver := f.resolver()
	now := time.Now()

	t.Run("blacked out carrier never appears for istanbul", func(t *testing.T) {
		for _, postal := range []string{"34710", "34000", "34999"} {
			addr := valueobject.MustNewAddress("TR", "İstanbul", "", postal)
			quotes, err := resolver.Resolve(context.Background(), addr, istanbulCart(t, "250"), now)
			require.NoError(t, err)
			assert.Empty(t, quotes, "postal %s", postal)
		}
	})

	t.Run("other postal areas still ship", func(t *testing.T) {
		addr := valueobject.MustNewAddress("TR", "Ankara", "", "06420")
		quotes, err := resolver.Resolve(context.Background(), addr, istanbulCart(t, "250"), now)
		require.NoError(t, err)
		assert.NotEmpty(t, quotes)
	})
}

func TestResolverConstraintFilters(t *testing.T) {
	now := time.Now()

	t.Run("weight window", func(t *testing.T) {
		f := newShippingFixture(t)
		max := dec(t, "1.5")
		f.istanbulStd.MaxWeight = &max
		f.turkiyeStd.MaxWeight = &max

		quotes, err := f.resolver().Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), now)
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})

	t.Run("carrier weight limit", func(t *testing.T) {
		f := newShippingFixture(t)
		limit := dec(t, "1")
		f.carrier.MaxWeight = &limit

		quotes, err := f.resolver().Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), now)
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})

	t.Run("price window", func(t *testing.T) {
		f := newShippingFixture(t)
		min := dec(t, "500")
		f.istanbulStd.MinPrice = &min

		quotes, err := f.resolver().Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), now)
		require.NoError(t, err)
		// Falls back to the country zone method which has no window
		require.Len(t, quotes, 1)
		assert.Equal(t, "turkiye", quotes[0].Zone.Slug)
	})

	t.Run("COD requires carrier support", func(t *testing.T) {
		f := newShippingFixture(t)
		f.carrier.SupportsCOD = false

		cart := istanbulCart(t, "250")
		cart.CashOnDelivery = true

		quotes, err := f.resolver().Resolve(context.Background(), istanbulAddress(), cart, now)
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})

	t.Run("international needs a capable carrier", func(t *testing.T) {
		f := newShippingFixture(t)
		world, err := NewZone("rest-of-world", "ROW", "Rest of World", ZoneTypeCustom)
		require.NoError(t, err)
		worldStd, err := NewMethod(f.carrier.ID, world.ID, "INTL", "International", CalcMethodFlat)
		require.NoError(t, err)
		worldStd.BaseFee = dec(t, "90")

		fees := NewFeeCalculator(testFeeStrategies{}, f.settings)
		resolver := NewResolver(
			[]Zone{*world},
			[]Carrier{*f.carrier},
			[]Method{*worldStd},
			nil, f.settings, fees, zap.NewNop(),
		)

		addr := valueobject.MustNewAddress("DE", "", "Berlin", "10115")
		quotes, err := resolver.Resolve(context.Background(), addr, istanbulCart(t, "250"), now)
		require.NoError(t, err)
		assert.Empty(t, quotes)

		f.carrier.SupportsInternational = true
		resolver = NewResolver(
			[]Zone{*world},
			[]Carrier{*f.carrier},
			[]Method{*worldStd},
			nil, f.settings, fees, zap.NewNop(),
		)
		quotes, err = resolver.Resolve(context.Background(), addr, istanbulCart(t, "250"), now)
		require.NoError(t, err)
		assert.Len(t, quotes, 1)
	})

	t.Run("excluded product categories", func(t *testing.T) {
		f := newShippingFixture(t)
		f.istanbulStd.ExcludedProductCategories = StringList{"furniture"}
		f.turkiyeStd.ExcludedProductCategories = StringList{"furniture"}

		cart := istanbulCart(t, "250")
		cart.Categories = []string{"Furniture", "books"}

		quotes, err := f.resolver().Resolve(context.Background(), istanbulAddress(), cart, now)
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})

	t.Run("inactive methods and zones are never candidates", func(t *testing.T) {
		f := newShippingFixture(t)
		f.istanbulStd.IsActive = false
		f.turkiyeZone.IsActive = false

		quotes, err := f.resolver().Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), now)
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})
}

func TestResolverOrdering(t *testing.T) {
	f := newShippingFixture(t)

	express, err := NewMethod(f.carrier.ID, f.istanbulZone.ID, "EXP", "Express", CalcMethodFlat)
	require.NoError(t, err)
	express.BaseFee = dec(t, "30.00")
	express.SortOrder = 1

	fees := NewFeeCalculator(testFeeStrategies{}, f.settings)
	resolver := NewResolver(
		[]Zone{*f.istanbulZone, *f.turkiyeZone},
		[]Carrier{*f.carrier},
		[]Method{*express, *f.istanbulStd, *f.turkiyeStd},
		nil, f.settings, fees, zap.NewNop(),
	)

	quotes, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), time.Now())
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	// İstanbul zone first (more specific), its methods by sort order,
	// then the country-wide zone
	assert.Equal(t, "STD", quotes[0].Method.Code)
	assert.Equal(t, "turkiye-istanbul", quotes[0].Zone.Slug)
	assert.Equal(t, "EXP", quotes[1].Method.Code)
	assert.Equal(t, "turkiye", quotes[2].Zone.Slug)
}

func TestResolverSkipsBrokenFeeConfig(t *testing.T) {
	// A table rate method without breakpoints cannot compute a fee. The
	// broken method drops out; every other candidate still quotes.
	f := newShippingFixture(t)
	f.istanbulStd.CalcMethod = CalcMethodTableRate
	f.istanbulStd.RateTable = nil

	core, logs := observer.New(zap.WarnLevel)
	fees := NewFeeCalculator(testFeeStrategies{}, f.settings)
	resolver := NewResolver(
		[]Zone{*f.istanbulZone, *f.turkiyeZone},
		[]Carrier{*f.carrier},
		[]Method{*f.istanbulStd, *f.turkiyeStd},
		nil, f.settings, fees, zap.New(core),
	)

	quotes, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), time.Now())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "turkiye", quotes[0].Zone.Slug)
	assert.Equal(t, 1, logs.FilterMessage("shipping method fee computation failed, skipping method").Len())
}

func TestResolverAmbiguousZones(t *testing.T) {
	buildResolver := func(t *testing.T, zoneA, zoneB *Zone) (*Resolver, *observer.ObservedLogs) {
		t.Helper()
		carrier, err := NewCarrier("ARAS", "Aras Kargo")
		require.NoError(t, err)
		methodA, err := NewMethod(carrier.ID, zoneA.ID, "STD", "Standart Teslimat", CalcMethodFlat)
		require.NoError(t, err)
		methodB, err := NewMethod(carrier.ID, zoneB.ID, "STD", "Standart Teslimat", CalcMethodFlat)
		require.NoError(t, err)

		core, logs := observer.New(zap.WarnLevel)
		settings := DefaultSettings()
		fees := NewFeeCalculator(testFeeStrategies{}, settings)
		return NewResolver(
			[]Zone{*zoneA, *zoneB},
			[]Carrier{*carrier},
			[]Method{*methodA, *methodB},
			nil, settings, fees, zap.New(core),
		), logs
	}

	newCountryZone := func(t *testing.T, slug string, sortOrder int) *Zone {
		t.Helper()
		zone, err := NewZone(slug, strings.ToUpper(slug), slug, ZoneTypeCountry)
		require.NoError(t, err)
		zone.Countries = StringList{"TR"}
		zone.SortOrder = sortOrder
		return zone
	}

	t.Run("equally specific zones warn and resolve by sort order", func(t *testing.T) {
		yurtici := newCountryZone(t, "yurtici", 5)
		anadolu := newCountryZone(t, "anadolu", 10)

		resolver, logs := buildResolver(t, anadolu, yurtici)
		quotes, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), time.Now())
		require.NoError(t, err)
		require.Len(t, quotes, 2)
		assert.Equal(t, "yurtici", quotes[0].Zone.Slug)
		assert.Equal(t, 1, logs.FilterMessage("ambiguous zone match, resolving by sort order").Len())
	})

	t.Run("equal sort orders resolve by slug", func(t *testing.T) {
		yurtici := newCountryZone(t, "yurtici", 5)
		anadolu := newCountryZone(t, "anadolu", 5)

		resolver, logs := buildResolver(t, yurtici, anadolu)
		quotes, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), time.Now())
		require.NoError(t, err)
		require.Len(t, quotes, 2)
		assert.Equal(t, "anadolu", quotes[0].Zone.Slug)
		assert.Equal(t, 1, logs.FilterMessage("ambiguous zone match, resolving by sort order").Len())
	})
}

func TestResolverDeterminism(t *testing.T) {
	f := newShippingFixture(t)
	resolver := f.resolver()
	asOf := time.Unix(1700000000, 0)

	first, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), asOf)
	require.NoError(t, err)

	for range 10 {
		again, err := resolver.Resolve(context.Background(), istanbulAddress(), istanbulCart(t, "250"), asOf)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].Method.ID, again[i].Method.ID)
			assert.True(t, first[i].Fee.Equals(again[i].Fee))
		}
	}
}
