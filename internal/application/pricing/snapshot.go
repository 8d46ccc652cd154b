package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/domain/tax"
	"go.uber.org/zap"
)

// ConfigIssue flags one broken piece of pricing configuration found while a
// snapshot was built. Broken rows degrade a quote, never crash it: the
// affected rule or method simply drops out of evaluation.
type ConfigIssue struct {
	Source string    `json:"source"`
	RefID  uuid.UUID `json:"ref_id"`
	Reason string    `json:"reason"`
}

const (
	issueSourceTaxRule  = "tax_rule"
	issueSourceMethod   = "shipping_method"
	issueSourceBlackout = "shipping_blackout"
)

// SnapshotInput is the full active configuration set a snapshot is built
// from, loaded in one pass by the repository layer.
type SnapshotInput struct {
	TaxClasses []tax.TaxClass
	TaxRates   []tax.TaxRate
	TaxRules   []tax.TaxRule
	Zones      []shipping.Zone
	Carriers   []shipping.Carrier
	Methods    []shipping.Method
	Blackouts  []shipping.Blackout
	Settings   shipping.Settings
}

// Snapshot is one immutable, validated view of the tax and shipping
// configuration. Every pricing request reads exactly one snapshot, so a
// refresh mid-flight never mixes stale and fresh rows within a quote. It is
// safe for concurrent use.
type Snapshot struct {
	taxes     *tax.Resolver
	shipping  *shipping.Resolver
	classByID map[uuid.UUID]tax.TaxClass
	settings  shipping.Settings
	issues    []ConfigIssue
	builtAt   time.Time
}

// BuildSnapshot validates the input configuration and assembles the
// resolvers. Rows with dangling references are flagged and skipped; the
// snapshot itself always builds.
func BuildSnapshot(input SnapshotInput, strategies shipping.FeeStrategyProvider, log *zap.Logger) *Snapshot {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("pricing.snapshot")

	taxResolver, taxIssues := tax.NewResolver(input.TaxClasses, input.TaxRates, input.TaxRules, log)

	snap := &Snapshot{
		taxes:     taxResolver,
		classByID: make(map[uuid.UUID]tax.TaxClass, len(input.TaxClasses)),
		settings:  input.Settings,
		builtAt:   time.Now(),
	}
	for _, issue := range taxIssues {
		snap.issues = append(snap.issues, ConfigIssue{
			Source: issueSourceTaxRule,
			RefID:  issue.RuleID,
			Reason: issue.Reason,
		})
	}
	for _, class := range input.TaxClasses {
		if class.IsActive {
			snap.classByID[class.ID] = class
		}
	}

	snap.issues = append(snap.issues, validateShippingRefs(input, snap.classByID)...)

	fees := shipping.NewFeeCalculator(strategies, input.Settings)
	snap.shipping = shipping.NewResolver(
		input.Zones,
		input.Carriers,
		input.Methods,
		input.Blackouts,
		input.Settings,
		fees,
		log,
	)

	for _, issue := range snap.issues {
		log.Warn("pricing configuration issue",
			zap.String("source", issue.Source),
			zap.String("ref_id", issue.RefID.String()),
			zap.String("reason", issue.Reason))
	}
	return snap
}

// validateShippingRefs cross-checks method and blackout references against
// the carriers, zones and tax classes actually present
func validateShippingRefs(input SnapshotInput, classByID map[uuid.UUID]tax.TaxClass) []ConfigIssue {
	carrierIDs := make(map[uuid.UUID]struct{}, len(input.Carriers))
	for _, c := range input.Carriers {
		if c.IsActive {
			carrierIDs[c.ID] = struct{}{}
		}
	}
	zoneIDs := make(map[uuid.UUID]struct{}, len(input.Zones))
	for _, z := range input.Zones {
		if z.IsActive {
			zoneIDs[z.ID] = struct{}{}
		}
	}

	var issues []ConfigIssue
	for _, m := range input.Methods {
		if !m.IsActive {
			continue
		}
		if err := m.ValidateFeeConfig(); err != nil {
			issues = append(issues, ConfigIssue{
				Source: issueSourceMethod,
				RefID:  m.ID,
				Reason: fmt.Sprintf("method %s: %s", m.Code, err.Error()),
			})
		}
		if _, ok := carrierIDs[m.CarrierID]; !ok {
			issues = append(issues, ConfigIssue{
				Source: issueSourceMethod,
				RefID:  m.ID,
				Reason: fmt.Sprintf("method %s references missing or inactive carrier %s", m.Code, m.CarrierID),
			})
		}
		if _, ok := zoneIDs[m.ZoneID]; !ok {
			issues = append(issues, ConfigIssue{
				Source: issueSourceMethod,
				RefID:  m.ID,
				Reason: fmt.Sprintf("method %s references missing or inactive zone %s", m.Code, m.ZoneID),
			})
		}
		if m.IsTaxable {
			if m.TaxClassID == nil {
				issues = append(issues, ConfigIssue{
					Source: issueSourceMethod,
					RefID:  m.ID,
					Reason: fmt.Sprintf("taxable method %s has no tax class", m.Code),
				})
			} else if _, ok := classByID[*m.TaxClassID]; !ok {
				issues = append(issues, ConfigIssue{
					Source: issueSourceMethod,
					RefID:  m.ID,
					Reason: fmt.Sprintf("taxable method %s references missing tax class %s", m.Code, *m.TaxClassID),
				})
			}
		}
	}
	for _, b := range input.Blackouts {
		if !b.IsActive {
			continue
		}
		if b.CarrierID != nil {
			if _, ok := carrierIDs[*b.CarrierID]; !ok {
				issues = append(issues, ConfigIssue{
					Source: issueSourceBlackout,
					RefID:  b.ID,
					Reason: fmt.Sprintf("blackout references missing or inactive carrier %s", *b.CarrierID),
				})
			}
		}
		if b.ZoneID != nil {
			if _, ok := zoneIDs[*b.ZoneID]; !ok {
				issues = append(issues, ConfigIssue{
					Source: issueSourceBlackout,
					RefID:  b.ID,
					Reason: fmt.Sprintf("blackout references missing or inactive zone %s", *b.ZoneID),
				})
			}
		}
	}
	return issues
}

// Taxes returns the snapshot's tax resolver
func (s *Snapshot) Taxes() *tax.Resolver {
	return s.taxes
}

// Shipping returns the snapshot's shipping resolver
func (s *Snapshot) Shipping() *shipping.Resolver {
	return s.shipping
}

// Settings returns the global shipping settings the snapshot was built with
func (s *Snapshot) Settings() shipping.Settings {
	return s.settings
}

// Currency returns the snapshot's response currency
func (s *Snapshot) Currency() valueobject.Currency {
	if s.settings.CurrencyCode != "" {
		return s.settings.CurrencyCode
	}
	return valueobject.DefaultCurrency
}

// HasTaxClass reports whether the given tax class is part of the snapshot
func (s *Snapshot) HasTaxClass(id uuid.UUID) bool {
	_, ok := s.classByID[id]
	return ok
}

// Issues returns the configuration issues found while building
func (s *Snapshot) Issues() []ConfigIssue {
	return s.issues
}

// BuiltAt returns when the snapshot was assembled
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}
