package shipping

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Quote is one eligible shipping method with its computed fee
type Quote struct {
	Method  Method            `json:"method"`
	Carrier Carrier           `json:"carrier"`
	Zone    Zone              `json:"zone"`
	Fee     valueobject.Money `json:"fee"`

	// zoneSpecificity is retained for ordering
	zoneSpecificity int
}

// Resolver produces the ranked list of eligible shipping methods for a
// destination and cart. It holds an immutable view of the zone, carrier,
// method and blackout configuration and is safe for concurrent use.
type Resolver struct {
	zones         []Zone
	carrierByID   map[uuid.UUID]Carrier
	methodsByZone map[uuid.UUID][]Method
	settings      Settings

	geo       *GeoMatcher
	blackouts *BlackoutFilter
	fees      *FeeCalculator
	log       *zap.Logger
}

// NewResolver builds a shipping resolver over the given configuration
func NewResolver(
	zones []Zone,
	carriers []Carrier,
	methods []Method,
	blackouts []Blackout,
	settings Settings,
	fees *FeeCalculator,
	log *zap.Logger,
) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Resolver{
		carrierByID:   make(map[uuid.UUID]Carrier, len(carriers)),
		methodsByZone: make(map[uuid.UUID][]Method),
		settings:      settings,
		geo:           NewGeoMatcher(),
		blackouts:     NewBlackoutFilter(blackouts),
		fees:          fees,
		log:           log.Named("shipping.resolver"),
	}

	for _, zone := range zones {
		if zone.IsActive {
			r.zones = append(r.zones, zone)
		}
	}
	for _, carrier := range carriers {
		if carrier.IsActive {
			r.carrierByID[carrier.ID] = carrier
		}
	}
	for _, method := range methods {
		if method.IsActive {
			r.methodsByZone[method.ZoneID] = append(r.methodsByZone[method.ZoneID], method)
		}
	}
	return r
}

// Resolve returns the eligible shipping methods for the address and cart,
// ordered by zone specificity, then method sort order, then fee. An empty
// result means no shipping is available to this address; it is a valid
// outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, address valueobject.Address, cart CartContext, asOf time.Time) ([]Quote, error) {
	matchedZones := r.matchZones(address)
	if len(matchedZones) == 0 {
		return nil, nil
	}

	var quotes []Quote
	for _, zone := range matchedZones {
		specificity := r.geo.Specificity(&zone)
		for _, method := range r.methodsByZone[zone.ID] {
			carrier, ok := r.carrierByID[method.CarrierID]
			if !ok {
				// Method of a retired carrier; configuration issue, skip
				r.log.Warn("shipping method references inactive or missing carrier",
					zap.String("method", method.Code),
					zap.String("carrier_id", method.CarrierID.String()))
				continue
			}
			if !r.eligible(&method, &carrier, &zone, address, cart, asOf) {
				continue
			}

			fee, err := r.fees.ComputeFee(ctx, &method, cart)
			if err != nil {
				// Broken fee configuration; skip the method, keep the quote alive
				r.log.Warn("shipping method fee computation failed, skipping method",
					zap.String("method", method.Code),
					zap.Error(err))
				continue
			}
			quotes = append(quotes, Quote{
				Method:          method,
				Carrier:         carrier,
				Zone:            zone,
				Fee:             fee,
				zoneSpecificity: specificity,
			})
		}
	}

	sortQuotes(quotes)
	return quotes, nil
}

// matchZones returns all active zones covering the address, most specific
// first. Two equally-specific distinct zones at the top are a
// configuration smell; the tie resolves deterministically by sort order,
// then slug, and is logged as a warning.
func (r *Resolver) matchZones(address valueobject.Address) []Zone {
	var matched []Zone
	for _, zone := range r.zones {
		if r.geo.Matches(&zone, address) {
			matched = append(matched, zone)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := r.geo.Specificity(&matched[i]), r.geo.Specificity(&matched[j])
		if si != sj {
			return si > sj
		}
		if matched[i].SortOrder != matched[j].SortOrder {
			return matched[i].SortOrder < matched[j].SortOrder
		}
		return matched[i].Slug < matched[j].Slug
	})

	if len(matched) > 1 {
		first, second := &matched[0], &matched[1]
		if !first.IsCatchAll() && !second.IsCatchAll() &&
			r.geo.Specificity(first) == r.geo.Specificity(second) {
			r.log.Warn("ambiguous zone match, resolving by sort order",
				zap.String("address", address.String()),
				zap.String("zone", first.Slug),
				zap.String("conflicting_zone", second.Slug))
		}
	}
	return matched
}

// eligible applies every hard filter: blackouts, weight/price/quantity
// windows, carrier capability and limits, and product exclusions
func (r *Resolver) eligible(method *Method, carrier *Carrier, zone *Zone, address valueobject.Address, cart CartContext, asOf time.Time) bool {
	if r.blackouts.IsBlocked(carrier.ID, zone.ID, address, asOf) {
		return false
	}
	if !method.FitsWeight(cart.Weight) || !carrier.CanCarryWeight(cart.Weight) {
		return false
	}
	if !method.FitsPrice(cart.Subtotal.Amount()) {
		return false
	}
	if !method.FitsQuantity(cart.Quantity) {
		return false
	}
	if cart.CashOnDelivery && !carrier.SupportsCOD {
		return false
	}
	if !strings.EqualFold(address.CountryCode(), r.settings.HomeCountryCode) && !carrier.SupportsInternational {
		return false
	}
	if method.ExcludesAny(cart.Categories, cart.ProductTypes) {
		return false
	}
	return true
}

// sortQuotes orders by zone specificity descending, then method sort order
// ascending, then fee ascending. Method code breaks any remaining tie so
// output order is stable across runs.
func sortQuotes(quotes []Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].zoneSpecificity != quotes[j].zoneSpecificity {
			return quotes[i].zoneSpecificity > quotes[j].zoneSpecificity
		}
		if quotes[i].Method.SortOrder != quotes[j].Method.SortOrder {
			return quotes[i].Method.SortOrder < quotes[j].Method.SortOrder
		}
		if !quotes[i].Fee.Equals(quotes[j].Fee) {
			less, err := quotes[i].Fee.LessThan(quotes[j].Fee)
			if err == nil {
				return less
			}
		}
		return quotes[i].Method.Code < quotes[j].Method.Code
	})
}
