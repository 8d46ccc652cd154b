package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/domain/tax"
	"go.uber.org/zap"
)

// SnapshotProvider hands out the current configuration snapshot. Each
// service operation reads exactly one snapshot for its whole computation.
type SnapshotProvider interface {
	Current(ctx context.Context) (*Snapshot, error)
}

// Service is the order pricing pipeline: per-line tax resolution,
// cart-level aggregation and shipping selection folded into one priced
// quote. It performs no I/O beyond fetching the snapshot and holds no
// mutable state, so it is safe for concurrent use.
type Service struct {
	snapshots SnapshotProvider
	log       *zap.Logger
}

// NewService creates a pricing service over the given snapshot provider
func NewService(snapshots SnapshotProvider, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		snapshots: snapshots,
		log:       log.Named("pricing.service"),
	}
}

// Price produces a complete priced quote for the cart: line totals and
// taxes, eligible shipping with its fee and tax, and the grand total. An
// address no zone covers yields NoShippingAvailable in the response, not an
// error.
func (s *Service) Price(ctx context.Context, req PriceOrderRequest) (*PricedOrder, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order must have at least one line")
	}

	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	asOf := effectiveAsOf(req.AsOf)
	currency := snap.Currency()

	// The order amount consulted by rule amount windows is the full
	// pre-tax subtotal, so it is computed before any line is taxed.
	subtotalAmount := decimal.Zero
	weight := decimal.Zero
	quantity := 0
	for _, line := range req.Lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotalAmount = subtotalAmount.Add(line.UnitPrice.Mul(qty))
		weight = weight.Add(line.Weight.Mul(qty))
		quantity += line.Quantity
	}

	result := &PricedOrder{
		Currency:    currency,
		Lines:       make([]PricedLine, 0, len(req.Lines)),
		TaxTotal:    valueobject.Zero(currency),
		ShippingTax: valueobject.Zero(currency),
	}

	taxTotal := valueobject.Zero(currency)
	for _, line := range req.Lines {
		priced, err := s.priceLine(snap, req, line, subtotalAmount, currency, asOf)
		if err != nil {
			return nil, err
		}
		taxTotal = taxTotal.MustAdd(priced.TaxAmount)
		result.Lines = append(result.Lines, priced)
	}

	subtotal := mustMoney(subtotalAmount, currency).RoundCurrency()
	result.Subtotal = subtotal
	result.TaxTotal = taxTotal

	cart := shipping.CartContext{
		Subtotal:        subtotal,
		SubtotalWithTax: subtotal.MustAdd(taxTotal),
		Weight:          weight,
		Quantity:        quantity,
		CashOnDelivery:  req.CashOnDelivery,
		Categories:      collectLineValues(req.Lines, func(l OrderLineRequest) []string { return l.Categories }),
		ProductTypes: collectLineValues(req.Lines, func(l OrderLineRequest) []string {
			if l.ProductType == "" {
				return nil
			}
			return []string{l.ProductType}
		}),
	}

	quotes, err := snap.Shipping().Resolve(ctx, req.Address, cart, asOf)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		result.NoShippingAvailable = true
		result.GrandTotal = subtotal.MustAdd(taxTotal)
		return result, nil
	}

	selected := selectQuote(quotes, req)
	if selected == nil {
		// No usable choice; surface the ranked list for the caller
		result.ShippingOptions = toShippingOptions(quotes)
		result.GrandTotal = subtotal.MustAdd(taxTotal)
		return result, nil
	}

	option := toShippingOption(*selected)
	result.Shipping = &option
	result.ShippingTax = s.shippingTax(snap, req, selected, subtotalAmount, currency, asOf)
	result.GrandTotal = subtotal.
		MustAdd(taxTotal).
		MustAdd(selected.Fee).
		MustAdd(result.ShippingTax)
	return result, nil
}

// ResolveShippingOptions returns the ranked eligible shipping methods for a
// destination and cart
func (s *Service) ResolveShippingOptions(ctx context.Context, req ShippingOptionsRequest) (*ShippingOptionsResponse, error) {
	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}
	currency := snap.Currency()

	cart := shipping.CartContext{
		Subtotal:        mustMoney(req.Subtotal, currency),
		SubtotalWithTax: mustMoney(req.SubtotalWithTax, currency),
		Weight:          req.Weight,
		Quantity:        req.Quantity,
		CashOnDelivery:  req.CashOnDelivery,
		Categories:      req.Categories,
		ProductTypes:    req.ProductTypes,
	}

	quotes, err := snap.Shipping().Resolve(ctx, req.Address, cart, effectiveAsOf(req.AsOf))
	if err != nil {
		return nil, err
	}
	return &ShippingOptionsResponse{
		Options:             toShippingOptions(quotes),
		NoShippingAvailable: len(quotes) == 0,
	}, nil
}

// ResolveTax resolves the effective tax rate for one entity context
func (s *Service) ResolveTax(ctx context.Context, req TaxQueryRequest) (*TaxResolutionResponse, error) {
	entityType := tax.EntityType(req.EntityType)
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", "Unknown entity type")
	}

	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return nil, err
	}

	res, err := snap.Taxes().ResolveRate(tax.EntityContext{
		EntityType:   entityType,
		EntityID:     req.EntityID,
		TaxClassID:   req.TaxClassID,
		Address:      req.Address,
		CustomerType: req.CustomerType,
		OrderAmount:  req.OrderAmount,
		Attributes:   req.Attributes,
	}, effectiveAsOf(req.AsOf))
	if err != nil {
		return nil, err
	}
	return &TaxResolutionResponse{
		Rate:           res.Rate,
		FixedAmount:    res.FixedAmount,
		AppliedRuleIDs: res.AppliedRuleIDs,
		FromDefault:    res.FromDefault,
	}, nil
}

// priceLine resolves one line's tax and returns the priced line. Line tax
// is line total times the effective rate plus any fixed per-line amounts.
func (s *Service) priceLine(snap *Snapshot, req PriceOrderRequest, line OrderLineRequest, orderAmount decimal.Decimal, currency valueobject.Currency, asOf time.Time) (PricedLine, error) {
	res, err := snap.Taxes().ResolveRate(tax.EntityContext{
		EntityType:   tax.EntityTypeProduct,
		EntityID:     line.ProductID,
		TaxClassID:   line.TaxClassID,
		Address:      req.Address,
		CustomerType: req.CustomerType,
		OrderAmount:  orderAmount,
		Attributes:   line.Attributes,
	}, asOf)
	if err != nil {
		return PricedLine{}, err
	}

	lineTotal := mustMoney(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))), currency).RoundCurrency()
	taxAmount := mustMoney(lineTotal.Amount().Mul(res.Rate).Add(res.FixedAmount), currency).RoundCurrency()

	return PricedLine{
		ProductID:      line.ProductID,
		Name:           line.Name,
		Quantity:       line.Quantity,
		UnitPrice:      mustMoney(line.UnitPrice, currency),
		LineTotal:      lineTotal,
		TaxRate:        res.Rate,
		TaxAmount:      taxAmount,
		AppliedRuleIDs: res.AppliedRuleIDs,
		TaxFromDefault: res.FromDefault,
	}, nil
}

// shippingTax resolves the tax on the selected shipping fee through the
// method's own tax class. Broken tax configuration on a method degrades to
// zero shipping tax rather than failing the quote.
func (s *Service) shippingTax(snap *Snapshot, req PriceOrderRequest, quote *shipping.Quote, orderAmount decimal.Decimal, currency valueobject.Currency, asOf time.Time) valueobject.Money {
	method := quote.Method
	if !method.IsTaxable || method.TaxClassID == nil {
		return valueobject.Zero(currency)
	}

	res, err := snap.Taxes().ResolveRate(tax.EntityContext{
		EntityType:   tax.EntityTypeShipping,
		EntityID:     &method.ID,
		TaxClassID:   *method.TaxClassID,
		Address:      req.Address,
		CustomerType: req.CustomerType,
		OrderAmount:  orderAmount,
	}, asOf)
	if err != nil {
		s.log.Warn("shipping tax resolution failed, charging no shipping tax",
			zap.String("method", method.Code),
			zap.Error(err))
		return valueobject.Zero(currency)
	}
	return mustMoney(quote.Fee.Amount().Mul(res.Rate).Add(res.FixedAmount), currency).RoundCurrency()
}

// selectQuote revalidates the caller's chosen method against the eligible
// quotes. Nil means no selection was possible.
func selectQuote(quotes []shipping.Quote, req PriceOrderRequest) *shipping.Quote {
	if req.ChosenMethodID == nil {
		return nil
	}
	for i := range quotes {
		if quotes[i].Method.ID == *req.ChosenMethodID {
			return &quotes[i]
		}
	}
	return nil
}

func toShippingOption(q shipping.Quote) ShippingOption {
	return ShippingOption{
		MethodID:        q.Method.ID,
		MethodCode:      q.Method.Code,
		MethodName:      q.Method.Name,
		CarrierCode:     q.Carrier.Code,
		CarrierName:     q.Carrier.Name,
		ZoneSlug:        q.Zone.Slug,
		Fee:             q.Fee,
		DeliveryDaysMin: q.Method.DeliveryDaysMin,
		DeliveryDaysMax: q.Method.DeliveryDaysMax,
	}
}

func toShippingOptions(quotes []shipping.Quote) []ShippingOption {
	if len(quotes) == 0 {
		return nil
	}
	options := make([]ShippingOption, len(quotes))
	for i, q := range quotes {
		options[i] = toShippingOption(q)
	}
	return options
}

// collectLineValues gathers per-line values preserving first-seen order so
// repeated pricing of the same cart is deterministic
func collectLineValues(lines []OrderLineRequest, get func(OrderLineRequest) []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range lines {
		for _, v := range get(line) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func effectiveAsOf(asOf *time.Time) time.Time {
	if asOf != nil {
		return *asOf
	}
	return time.Now()
}

// mustMoney wraps an amount that already carries a known-good currency
func mustMoney(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	m, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		// Currency comes from the snapshot settings and is never empty
		panic(err)
	}
	return m
}
