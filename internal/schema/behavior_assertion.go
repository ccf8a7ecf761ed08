package schema

import (
	"fmt"
)

// BehaviorAssertionKind discriminates the BehaviorAssertion tagged union.
type BehaviorAssertionKind string

const (
	AssertBaselineStdoutContainsSeedPath    BehaviorAssertionKind = "baseline_stdout_contains_seed_path"
	AssertBaselineStdoutNotContainsSeedPath BehaviorAssertionKind = "baseline_stdout_not_contains_seed_path"
	AssertVariantStdoutContainsSeedPath     BehaviorAssertionKind = "variant_stdout_contains_seed_path"
	AssertVariantStdoutNotContainsSeedPath  BehaviorAssertionKind = "variant_stdout_not_contains_seed_path"
	AssertBaselineStdoutHasLine             BehaviorAssertionKind = "baseline_stdout_has_line"
	AssertBaselineStdoutNotHasLine          BehaviorAssertionKind = "baseline_stdout_not_has_line"
	AssertVariantStdoutHasLine              BehaviorAssertionKind = "variant_stdout_has_line"
	AssertVariantStdoutNotHasLine           BehaviorAssertionKind = "variant_stdout_not_has_line"
	AssertVariantStdoutDiffersFromBaseline  BehaviorAssertionKind = "variant_stdout_differs_from_baseline"
)

// BehaviorAssertion is one tagged-variant assertion compared against
// executed baseline/variant evidence. SeedPath and StdoutToken are optional
// depending on Kind.
type BehaviorAssertion struct {
	Kind        BehaviorAssertionKind `json:"kind"`
	SeedPath    string                `json:"seed_path,omitempty"`
	StdoutToken string                `json:"stdout_token,omitempty"`
}

// Validate checks that SeedPath/StdoutToken are present when the kind
// requires them.
func (a BehaviorAssertion) Validate() error {
	switch a.Kind {
	case AssertBaselineStdoutContainsSeedPath, AssertBaselineStdoutNotContainsSeedPath,
		AssertVariantStdoutContainsSeedPath, AssertVariantStdoutNotContainsSeedPath:
		if a.SeedPath == "" {
			return fmt.Errorf("assertion %q requires seed_path", a.Kind)
		}
	case AssertBaselineStdoutHasLine, AssertBaselineStdoutNotHasLine,
		AssertVariantStdoutHasLine, AssertVariantStdoutNotHasLine:
		if a.StdoutToken == "" {
			return fmt.Errorf("assertion %q requires stdout_token", a.Kind)
		}
	case AssertVariantStdoutDiffersFromBaseline:
		// no payload required
	default:
		return fmt.Errorf("unknown assertion kind %q", a.Kind)
	}
	return nil
}

// UnmarshalJSON rejects unknown fields on the flattened assertion object,
// matching the strict-decode discipline used for every other record.
func (a *BehaviorAssertion) UnmarshalJSON(data []byte) error {
	type alias BehaviorAssertion
	var tmp alias
	if err := DecodeStrict(data, &tmp); err != nil {
		return err
	}
	*a = BehaviorAssertion(tmp)
	return nil
}
