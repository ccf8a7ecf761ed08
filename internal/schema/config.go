package schema

import "fmt"

// RequirementId names one of the requirements the evaluator tracks.
type RequirementId string

const (
	RequirementSurface         RequirementId = "surface"
	RequirementCoverage        RequirementId = "coverage"
	RequirementVerification    RequirementId = "verification"
	RequirementCoverageLedger  RequirementId = "coverage_ledger"
	RequirementExamplesReport  RequirementId = "examples_report"
	RequirementManPage         RequirementId = "man_page"
)

// DefaultRequirements is substituted whenever EnrichConfig.Requirements is
// empty, per Testable Property 8 ("requirement normalization").
var DefaultRequirements = []RequirementId{RequirementSurface, RequirementVerification, RequirementManPage}

// VerificationTier selects which ledger column the Verification requirement
// tracks.
type VerificationTier string

const (
	VerificationTierAccepted VerificationTier = "accepted"
	VerificationTierBehavior VerificationTier = "behavior"
)

// EnrichConfig is the pack-owned configuration created by init and mutated
// only by the operator.
type EnrichConfig struct {
	SchemaVersion     int               `json:"schema_version"`
	UsageLensTemplate string            `json:"usage_lens_template"`
	Requirements      []RequirementId   `json:"requirements,omitempty"`
	VerificationTier  VerificationTier  `json:"verification_tier,omitempty"`
}

// EffectiveRequirements returns Requirements, normalized to DefaultRequirements
// when empty.
func (c *EnrichConfig) EffectiveRequirements() []RequirementId {
	if len(c.Requirements) == 0 {
		return DefaultRequirements
	}
	return c.Requirements
}

// EffectiveVerificationTier returns VerificationTier, defaulting to "accepted".
func (c *EnrichConfig) EffectiveVerificationTier() VerificationTier {
	if c.VerificationTier == "" {
		return VerificationTierAccepted
	}
	return c.VerificationTier
}

// Validate checks the config invariants: usage_lens_template relative and
// non-empty.
func (c *EnrichConfig) Validate() error {
	if c.UsageLensTemplate == "" {
		return fmt.Errorf("usage_lens_template must be non-empty")
	}
	if err := validateRelPathLoose(c.UsageLensTemplate); err != nil {
		return fmt.Errorf("usage_lens_template: %w", err)
	}
	switch c.VerificationTier {
	case "", VerificationTierAccepted, VerificationTierBehavior:
	default:
		return fmt.Errorf("verification_tier %q is not one of accepted, behavior", c.VerificationTier)
	}
	return nil
}

func validateRelPathLoose(rel string) error {
	if len(rel) > 0 && rel[0] == '/' {
		return fmt.Errorf("%q must be relative", rel)
	}
	return nil
}
