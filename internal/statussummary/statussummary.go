// Package statussummary assembles the stable, user-visible status envelope
// from the evaluator's output, per spec §4.10. Pure function, no I/O.
package statussummary

import (
	"bman/internal/requirement"
	"bman/internal/schema"
)

// Summary is the stable envelope surfaced by `bman status` and consumed by
// the ApplyLoop to decide its next move.
type Summary struct {
	Requirements     []schema.RequirementStatus
	Blockers         []schema.Blocker
	MissingArtifacts []string
	Decision         schema.EnrichDecision
	Reason           string
	NextAction       *schema.NextActionEnvelope

	AcceptedVerifiedCount   int
	AcceptedUnverifiedCount int
	BehaviorVerifiedCount   int
	BehaviorUnverifiedCount int
	ExcludedCount           int
}

// Build assembles a Summary from the evaluator's Output plus whatever
// lock/plan-level blockers and missing artifacts the caller accumulated
// before evaluation ran at all (e.g. an unreadable config).
func Build(lockPresent, lockFresh, planPresent bool, preBlockers []schema.Blocker, missingArtifacts []string, evalOut requirement.Output) Summary {
	s := Summary{
		Requirements:     evalOut.Requirements,
		Blockers:         append([]schema.Blocker(nil), preBlockers...),
		MissingArtifacts: append([]string(nil), missingArtifacts...),
		NextAction:       evalOut.NextAction,
	}

	for _, r := range evalOut.Requirements {
		s.Blockers = append(s.Blockers, r.Blockers...)
		if r.ID == schema.RequirementVerification && r.Verification != nil {
			s.BehaviorVerifiedCount = r.Verification.BehaviorVerifiedCount
			s.ExcludedCount = r.Verification.BehaviorExcludedCount
			if r.BehaviorUnverifiedCount != nil {
				s.BehaviorUnverifiedCount = *r.BehaviorUnverifiedCount
			}
		}
	}

	s.Decision = decide(lockPresent, planPresent, s.Blockers, missingArtifacts, evalOut.Requirements)
	s.Reason = reasonFor(s.Decision, evalOut.Requirements)
	return s
}

func decide(lockPresent, planPresent bool, blockers []schema.Blocker, missingArtifacts []string, requirements []schema.RequirementStatus) schema.EnrichDecision {
	if !lockPresent || !planPresent || len(blockers) > 0 || len(missingArtifacts) > 0 {
		return schema.DecisionBlocked
	}
	for _, r := range requirements {
		if r.State == schema.RequirementBlocked {
			return schema.DecisionBlocked
		}
	}
	for _, r := range requirements {
		if r.State == schema.RequirementUnmet {
			return schema.DecisionIncomplete
		}
	}
	return schema.DecisionComplete
}

func reasonFor(decision schema.EnrichDecision, requirements []schema.RequirementStatus) string {
	switch decision {
	case schema.DecisionComplete:
		return "every configured requirement is met"
	case schema.DecisionBlocked:
		for _, r := range requirements {
			if r.State == schema.RequirementBlocked {
				return string(r.ID) + ": " + r.Reason
			}
		}
		return "one or more blockers prevent progress"
	default:
		for _, r := range requirements {
			if r.State == schema.RequirementUnmet {
				return string(r.ID) + ": " + r.Reason
			}
		}
		return "work remains"
	}
}

// TriagePreview caps a list to 10 entries unless full is requested.
func TriagePreview(ids []string, full bool) []string {
	if full || len(ids) <= 10 {
		return ids
	}
	return ids[:10]
}
