package tax

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ConfigIssue flags a broken piece of tax configuration discovered while
// the resolver was built. Broken rules are skipped, never evaluated, so a
// misconfigured row can degrade a quote but cannot crash it.
type ConfigIssue struct {
	RuleID uuid.UUID `json:"rule_id"`
	Reason string    `json:"reason"`
}

// Resolution is the outcome of resolving tax for one entity context
type Resolution struct {
	// Rate is the effective fractional rate on the pre-tax base
	Rate decimal.Decimal `json:"rate"`
	// FixedAmount is the per-line amount contributed by fixed-type rates,
	// in order currency
	FixedAmount decimal.Decimal `json:"fixed_amount"`
	// AppliedRuleIDs lists the rules that contributed to the rate, in
	// application order, for receipts and audit
	AppliedRuleIDs []uuid.UUID `json:"applied_rule_ids"`
	// FromDefault is true when no rule matched and the tax class default
	// rate was used
	FromDefault bool `json:"from_default"`
}

// Resolver resolves the effective tax rate for an entity context. It holds
// an immutable, validated view of the class/rate/rule configuration and is
// safe for concurrent use.
type Resolver struct {
	classByID    map[uuid.UUID]TaxClass
	rateByID     map[uuid.UUID]TaxRate
	rulesByClass map[uuid.UUID][]TaxRule
	matcher      *RuleMatcher
	log          *zap.Logger
}

// NewResolver builds a resolver over the given configuration. Rules that
// fail validation or reference a missing rate (or a rate referencing a
// missing class) are skipped and returned as config issues.
func NewResolver(classes []TaxClass, rates []TaxRate, rules []TaxRule, log *zap.Logger) (*Resolver, []ConfigIssue) {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Resolver{
		classByID:    make(map[uuid.UUID]TaxClass, len(classes)),
		rateByID:     make(map[uuid.UUID]TaxRate, len(rates)),
		rulesByClass: make(map[uuid.UUID][]TaxRule),
		matcher:      NewRuleMatcher(),
		log:          log.Named("tax.resolver"),
	}

	for _, class := range classes {
		if !class.IsActive {
			continue
		}
		r.classByID[class.ID] = class
	}
	for _, rate := range rates {
		r.rateByID[rate.ID] = rate
	}

	var issues []ConfigIssue
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			issues = append(issues, ConfigIssue{RuleID: rule.ID, Reason: err.Error()})
			continue
		}
		rate, ok := r.rateByID[rule.TaxRateID]
		if !ok {
			issues = append(issues, ConfigIssue{
				RuleID: rule.ID,
				Reason: fmt.Sprintf("references missing tax rate %s", rule.TaxRateID),
			})
			continue
		}
		if _, ok := r.classByID[rate.TaxClassID]; !ok {
			issues = append(issues, ConfigIssue{
				RuleID: rule.ID,
				Reason: fmt.Sprintf("tax rate %s belongs to missing or inactive tax class %s", rate.ID, rate.TaxClassID),
			})
			continue
		}
		r.rulesByClass[rate.TaxClassID] = append(r.rulesByClass[rate.TaxClassID], rule)
	}

	for _, issue := range issues {
		r.log.Warn("skipping broken tax rule",
			zap.String("rule_id", issue.RuleID.String()),
			zap.String("reason", issue.Reason))
	}

	return r, issues
}

// ResolveRate resolves the effective rate for the context at the given
// instant. A matching stopping rule is authoritative: its rate alone is
// returned. Matching non-stopping rules combine - non-compound rates add on
// the pre-tax base, compound rates tax the running total including tax
// already applied, in priority order. With no match at all the context's
// tax class default rate applies.
func (r *Resolver) ResolveRate(ctx EntityContext, asOf time.Time) (Resolution, error) {
	class, ok := r.classByID[ctx.TaxClassID]
	if !ok {
		return Resolution{}, shared.NewDomainError("UNKNOWN_TAX_CLASS",
			fmt.Sprintf("Tax class %s is not part of the configuration", ctx.TaxClassID))
	}

	candidates := r.effectiveRules(ctx.TaxClassID, asOf)
	matched := r.matcher.Match(candidates, ctx, asOf)

	if len(matched) == 0 {
		r.log.Debug("no tax rule matched, using class default",
			zap.String("tax_class", class.Code),
			zap.String("entity_type", string(ctx.EntityType)))
		return Resolution{
			Rate:        class.DefaultRate,
			FixedAmount: decimal.Zero,
			FromDefault: true,
		}, nil
	}

	// A stopping rule shadows every other rule for this context.
	last := matched[len(matched)-1]
	if last.StopProcessing {
		rate := r.rateByID[last.TaxRateID]
		res := Resolution{
			Rate:           decimal.Zero,
			FixedAmount:    decimal.Zero,
			AppliedRuleIDs: []uuid.UUID{last.ID},
		}
		if rate.RateType == RateTypeFixed {
			res.FixedAmount = rate.Rate
		} else {
			res.Rate = rate.Rate
		}
		return res, nil
	}

	return r.combine(matched), nil
}

// effectiveRules returns the class's rules whose own rate is effective at
// asOf. A rule with a seasonal or retired rate silently drops out of
// evaluation for that instant.
func (r *Resolver) effectiveRules(taxClassID uuid.UUID, asOf time.Time) []TaxRule {
	rules := r.rulesByClass[taxClassID]
	out := make([]TaxRule, 0, len(rules))
	for _, rule := range rules {
		rate := r.rateByID[rule.TaxRateID]
		if !rate.IsEffective(asOf) {
			continue
		}
		out = append(out, rule)
	}
	return out
}

// combine folds the matched non-stopping rules into one effective rate.
// Computed over a base of 1 so the result is itself a fraction.
func (r *Resolver) combine(matched []TaxRule) Resolution {
	base := decimal.NewFromInt(1)
	totalTax := decimal.Zero
	fixed := decimal.Zero
	appliedIDs := make([]uuid.UUID, 0, len(matched))

	for _, rule := range matched {
		rate := r.rateByID[rule.TaxRateID]
		appliedIDs = append(appliedIDs, rule.ID)

		if rate.RateType == RateTypeFixed {
			fixed = fixed.Add(rate.Rate)
			continue
		}
		if rate.IsCompound {
			totalTax = totalTax.Add(base.Add(totalTax).Mul(rate.Rate))
		} else {
			totalTax = totalTax.Add(base.Mul(rate.Rate))
		}
	}

	return Resolution{
		Rate:           totalTax,
		FixedAmount:    fixed,
		AppliedRuleIDs: appliedIDs,
	}
}
