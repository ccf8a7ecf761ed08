// Package requirement computes RequirementStatus[] for every configured
// requirement, plus the single highest-priority NextAction, from pack-owned
// artifacts already loaded by the caller. Grounded on spec §4.5 and the
// original implementation's status/evaluate submodules, reworked as a pure
// function of its Input so the ApplyLoop can call it once per cycle without
// re-reading the filesystem.
package requirement

import (
	"sort"

	"bman/internal/schema"
)

// ArtifactStatus is the presence/freshness state of one derived file
// (coverage ledger, examples report, man page).
type ArtifactStatus struct {
	Present    bool
	InputsHash string
}

// Input bundles every already-loaded artifact the evaluator needs. Nil
// pointers mean "not loaded / invalid", distinct from an empty-but-valid
// value.
type Input struct {
	Config *schema.EnrichConfig

	LockPresent bool
	LockFresh   bool // lock present and not stale against the current inputs hash
	CurrentHash string

	Surface    *schema.SurfaceInventory
	SurfaceErr error

	Plan *schema.ScenarioPlan

	Coverage     *schema.CoverageLedger
	Verification *schema.VerificationLedger
	Progress     *schema.VerificationProgress

	CoverageLedgerFile ArtifactStatus
	ExamplesReportFile ArtifactStatus
	ManPageFile        ArtifactStatus
}

// Output is the evaluator's full verdict for one cycle.
type Output struct {
	Requirements []schema.RequirementStatus
	NextAction   *schema.NextActionEnvelope
}

// Evaluate computes RequirementStatus for every requirement named by
// in.Config.EffectiveRequirements, then selects the single highest-priority
// NextAction across all Unmet/Blocked requirements, in requirement order.
func Evaluate(in Input) Output {
	var out Output
	for _, id := range in.Config.EffectiveRequirements() {
		var status schema.RequirementStatus
		switch id {
		case schema.RequirementSurface:
			status = evaluateSurface(in)
		case schema.RequirementCoverage:
			status = evaluateCoverage(in)
		case schema.RequirementVerification:
			status = evaluateVerification(in)
		case schema.RequirementCoverageLedger:
			status = evaluateArtifact(id, in, in.CoverageLedgerFile)
		case schema.RequirementExamplesReport:
			status = evaluateArtifact(id, in, in.ExamplesReportFile)
		case schema.RequirementManPage:
			status = evaluateArtifact(id, in, in.ManPageFile)
		default:
			continue
		}
		out.Requirements = append(out.Requirements, status)
	}

	out.NextAction = selectNextAction(in, out.Requirements)
	return out
}

func evaluateSurface(in Input) schema.RequirementStatus {
	st := schema.RequirementStatus{ID: schema.RequirementSurface}
	if in.SurfaceErr != nil {
		st.State = schema.RequirementBlocked
		st.Reason = "surface inventory is missing or invalid"
		return st
	}
	if in.Surface == nil || in.Surface.MeaningfulItemCount() == 0 {
		st.State = schema.RequirementUnmet
		st.Reason = "surface inventory has no meaningful items yet"
		return st
	}
	if in.LockPresent && in.LockFresh && in.Surface.InputsHash != in.CurrentHash {
		st.State = schema.RequirementUnmet
		st.Reason = "surface inventory is stale against the current lock"
		return st
	}
	st.State = schema.RequirementMet
	st.Evidence = []string{"inventory/surface.json"}
	return st
}

func evaluateCoverage(in Input) schema.RequirementStatus {
	st := schema.RequirementStatus{ID: schema.RequirementCoverage}
	if in.Coverage == nil || in.Surface == nil {
		st.State = schema.RequirementUnmet
		st.Reason = "coverage ledger not yet built"
		return st
	}

	nonEntryPoint := map[string]bool{}
	for _, item := range in.Surface.Items {
		if item.ID != "" && !item.IsEntryPoint() {
			nonEntryPoint[item.ID] = true
		}
	}
	covered := map[string]bool{}
	for _, li := range in.Coverage.Items {
		if li.Status != schema.CoverageUncovered {
			covered[li.SurfaceID] = true
		}
	}

	var uncovered []string
	for id := range nonEntryPoint {
		if !covered[id] {
			uncovered = append(uncovered, id)
		}
	}
	sort.Strings(uncovered)

	if len(uncovered) > 0 {
		n := len(uncovered)
		st.State = schema.RequirementUnmet
		st.Reason = "surface items remain uncovered by any scenario"
		st.CoverageUncoveredCount = &n
		st.Evidence = uncovered
		return st
	}
	zero := 0
	st.CoverageUncoveredCount = &zero
	st.State = schema.RequirementMet
	return st
}

func evaluateVerification(in Input) schema.RequirementStatus {
	st := schema.RequirementStatus{ID: schema.RequirementVerification}
	if in.Verification == nil {
		st.State = schema.RequirementBlocked
		st.Reason = "verification ledger could not be built"
		return st
	}

	var targets []string
	for _, li := range in.Verification.Items {
		if li.BehaviorStatus == schema.BehaviorUnverified {
			targets = append(targets, li.SurfaceID)
		}
	}
	sort.Strings(targets)

	verified := in.Verification.VerifiedCount
	unverified := len(targets)
	excluded := in.Verification.ExcludedCount

	st.Verification = &schema.VerificationSummary{
		BehaviorExcludedCount: excluded,
		BehaviorVerifiedCount: verified,
		TargetIDs:             cap10(targets),
	}
	st.BehaviorUnverifiedCount = &unverified

	if unverified == 0 {
		st.State = schema.RequirementMet
		return st
	}
	st.State = schema.RequirementUnmet
	st.Reason = "behavior verification is incomplete"
	st.Evidence = cap10(targets)
	return st
}

func evaluateArtifact(id schema.RequirementId, in Input, a ArtifactStatus) schema.RequirementStatus {
	st := schema.RequirementStatus{ID: id}
	if !a.Present {
		st.State = schema.RequirementUnmet
		st.Reason = "derived artifact has not been produced yet"
		return st
	}
	if in.LockPresent && in.LockFresh && a.InputsHash != in.CurrentHash {
		st.State = schema.RequirementUnmet
		st.Reason = "derived artifact is stale against the current lock"
		return st
	}
	st.State = schema.RequirementMet
	return st
}

func cap10(ids []string) []string {
	if len(ids) <= 10 {
		return ids
	}
	return ids[:10]
}

func selectNextAction(in Input, statuses []schema.RequirementStatus) *schema.NextActionEnvelope {
	for _, st := range statuses {
		if st.State == schema.RequirementMet {
			continue
		}
		switch st.ID {
		case schema.RequirementSurface:
			return &schema.NextActionEnvelope{Action: schema.CommandAction{
				Command: "bman apply",
				Reason:  "surface inventory must be (re)built before coverage or verification can proceed",
			}}
		case schema.RequirementCoverage:
			return coverageNextAction(in, st)
		case schema.RequirementVerification:
			return verificationNextAction(in, st)
		default:
			return &schema.NextActionEnvelope{Action: schema.CommandAction{
				Command: "bman apply",
				Reason:  string(st.ID) + " is not yet met",
			}}
		}
	}
	return nil
}
