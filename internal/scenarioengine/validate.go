package scenarioengine

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"bman/internal/schema"
)

const helpIDPrefix = "help--"

// ValidatePlan checks every scenario's invariants: id well-formed; kind=help
// iff id begins with "help--"; seed XOR seed_dir; seed spec valid; timeouts
// finite and non-negative; paths relative; regexes compile; behavior-only
// fields constrained; non-ignored scenarios with covers must have non-empty
// argv.
func ValidatePlan(plan *schema.ScenarioPlan) error {
	seen := map[string]bool{}
	for i := range plan.Scenarios {
		s := &plan.Scenarios[i]
		if err := validateScenario(plan, s); err != nil {
			return fmt.Errorf("scenario %q: %w", s.ID, err)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func validateScenario(plan *schema.ScenarioPlan, s *schema.ScenarioSpec) error {
	if s.ID == "" || strings.ContainsAny(s.ID, "/\\") {
		return fmt.Errorf("id must be non-empty and contain no path separators")
	}
	isHelpID := strings.HasPrefix(s.ID, helpIDPrefix)
	if isHelpID != (s.Kind == schema.ScenarioKindHelp) {
		return fmt.Errorf("kind=help iff id begins with %q", helpIDPrefix)
	}
	if s.Seed != nil && s.SeedDir != "" {
		return fmt.Errorf("seed and seed_dir are mutually exclusive")
	}
	if err := ValidateSeedSpec(s.Seed, 0, 0); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if s.SeedDir != "" {
		if err := validateRelPath(s.SeedDir); err != nil {
			return fmt.Errorf("seed_dir: %w", err)
		}
	}
	if s.Cwd != "" {
		if err := validateRelPath(s.Cwd); err != nil {
			return fmt.Errorf("cwd: %w", err)
		}
	}
	if s.TimeoutSeconds != nil {
		if t := *s.TimeoutSeconds; t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("timeout_seconds must be finite and non-negative")
		}
	}
	if err := validateExpect(s.Expect); err != nil {
		return err
	}
	if s.Kind != schema.ScenarioKindBehavior {
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions are behavior-only")
		}
		if s.BaselineScenarioID != "" {
			return fmt.Errorf("baseline_scenario_id is behavior-only")
		}
		if s.CoverageTier == schema.CoverageTierBehavior {
			return fmt.Errorf("coverage_tier=behavior is behavior-only")
		}
	}
	for _, a := range s.Assertions {
		if a.Kind == "" {
			continue
		}
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if len(s.Assertions) > 0 && s.CoverageTier != schema.CoverageTierBehavior {
		return fmt.Errorf("assertions require coverage_tier=behavior")
	}
	if !s.CoverageIgnore && len(s.Covers) > 0 && len(s.Argv) == 0 {
		return fmt.Errorf("non-ignored scenarios with covers must have non-empty argv")
	}
	return nil
}

func validateExpect(e schema.ScenarioExpect) error {
	for _, list := range [][]string{e.StdoutRegexAll, e.StdoutRegexAny, e.StderrRegexAll, e.StderrRegexAny} {
		for _, pattern := range list {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("expect regex %q does not compile: %w", pattern, err)
			}
		}
	}
	return nil
}

func validateRelPath(p string) error {
	if p == "" {
		return fmt.Errorf("must be non-empty")
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("must be relative")
	}
	for _, seg := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		if seg == ".." {
			return fmt.Errorf("must not contain ..")
		}
	}
	return nil
}
