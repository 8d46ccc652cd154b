package tax

import (
	"bytes"
	"sort"
	"time"
)

// RuleMatcher evaluates tax rules against an entity context. Evaluation is
// strictly ordered: priority descending, exact entity matches before type
// wildcards, then rule id ascending so that equal-priority rules always
// evaluate in the same order.
type RuleMatcher struct{}

// NewRuleMatcher creates a new rule matcher
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{}
}

// Match returns every rule applied for the context, in application order.
// Evaluation walks the ordered candidates, collects each rule whose scope
// and conditions hold, and halts as soon as an applied rule carries
// StopProcessing. The returned slice preserves that order so callers can
// report exactly which rules fired.
func (m *RuleMatcher) Match(rules []TaxRule, ctx EntityContext, asOf time.Time) []TaxRule {
	candidates := make([]TaxRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsEffective(asOf) {
			continue
		}
		if rule.EntityType != ctx.EntityType {
			continue
		}
		candidates = append(candidates, rule)
	}

	sortRulesForEvaluation(candidates, ctx)

	var matched []TaxRule
	for _, rule := range candidates {
		if !rule.AppliesTo(ctx, asOf) {
			continue
		}
		matched = append(matched, rule)
		if rule.StopProcessing {
			break
		}
	}
	return matched
}

// FindApplicableRule returns the highest-precedence applied rule, or nil if
// no rule matches the context.
func (m *RuleMatcher) FindApplicableRule(rules []TaxRule, ctx EntityContext, asOf time.Time) *TaxRule {
	matched := m.Match(rules, ctx, asOf)
	if len(matched) == 0 {
		return nil
	}
	return &matched[0]
}

// sortRulesForEvaluation orders candidates by priority descending, exact
// entity match before wildcard, then id ascending. The id tie-break keeps
// evaluation deterministic when priorities collide.
func sortRulesForEvaluation(rules []TaxRule, ctx EntityContext) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		exactI := rules[i].IsExactEntityMatch(ctx)
		exactJ := rules[j].IsExactEntityMatch(ctx)
		if exactI != exactJ {
			return exactI
		}
		return bytes.Compare(rules[i].ID[:], rules[j].ID[:]) < 0
	})
}
