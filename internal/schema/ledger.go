package schema

// CoverageStatus classifies a surface item's coverage state. Output
// precedence is behavior > rejected > acceptance > blocked > uncovered.
type CoverageStatus string

const (
	CoverageBehavior   CoverageStatus = "behavior"
	CoverageRejected   CoverageStatus = "rejected"
	CoverageAcceptance CoverageStatus = "acceptance"
	CoverageBlockedSt  CoverageStatus = "blocked"
	CoverageUncovered  CoverageStatus = "uncovered"
)

var coverageStatusRank = map[CoverageStatus]int{
	CoverageBehavior:   4,
	CoverageRejected:   3,
	CoverageAcceptance: 2,
	CoverageBlockedSt:  1,
	CoverageUncovered:  0,
}

// HigherCoverageStatus returns whichever of a, b has precedence.
func HigherCoverageStatus(a, b CoverageStatus) CoverageStatus {
	if coverageStatusRank[b] > coverageStatusRank[a] {
		return b
	}
	return a
}

// CoverageLedgerItem is one surface item's coverage classification.
type CoverageLedgerItem struct {
	SurfaceID string         `json:"surface_id"`
	Status    CoverageStatus `json:"status"`
	ScenarioIDs []string     `json:"scenario_ids,omitempty"`
	Evidence  []string       `json:"evidence,omitempty"`
	BlockedReason string     `json:"blocked_reason,omitempty"`
}

// CoverageLedger is the full per-item coverage classification, plus
// diagnostics about unresolvable references.
type CoverageLedger struct {
	SchemaVersion int                  `json:"schema_version"`
	InputsHash    string               `json:"inputs_hash,omitempty"`
	Items         []CoverageLedgerItem `json:"items"`
	UnknownItems  []string             `json:"unknown_items,omitempty"`
	Warnings      []string             `json:"warnings,omitempty"`
}

// BehaviorStatus classifies a surface item's verification state.
type BehaviorStatus string

const (
	BehaviorVerified   BehaviorStatus = "verified"
	BehaviorUnverified BehaviorStatus = "unverified"
	BehaviorExcluded   BehaviorStatus = "excluded"
)

// UnverifiedReasonCode explains why an item is not yet verified.
type UnverifiedReasonCode string

const (
	ReasonNoScenario            UnverifiedReasonCode = "no_scenario"
	ReasonScenarioError          UnverifiedReasonCode = "scenario_error"
	ReasonAssertionFailed        UnverifiedReasonCode = "assertion_failed"
	ReasonOutputsEqual           UnverifiedReasonCode = "outputs_equal"
	ReasonAutoVerifyTimeout      UnverifiedReasonCode = "auto_verify_timeout"
	ReasonRequiredValueMissing   UnverifiedReasonCode = "required_value_missing"
)

// DeltaOutcome classifies the comparison between baseline and variant
// evidence for a behavior scenario.
type DeltaOutcome string

const (
	DeltaDiffers      DeltaOutcome = "differs"
	DeltaOutputsEqual DeltaOutcome = "outputs_equal"
)

// AutoVerifyResult is the captured result of an automatic verification
// probe, when one was run.
type AutoVerifyResult struct {
	ExitCode int    `json:"exit_code"`
	Stderr   string `json:"stderr"`
}

// VerificationLedgerItem is one surface item's verification classification.
type VerificationLedgerItem struct {
	SurfaceID                    string                `json:"surface_id"`
	Status                       CoverageStatus        `json:"status,omitempty"`
	BehaviorStatus                BehaviorStatus        `json:"behavior_status"`
	BehaviorUnverifiedReasonCode  UnverifiedReasonCode  `json:"behavior_unverified_reason_code,omitempty"`
	BehaviorUnverifiedScenarioID  string                `json:"behavior_unverified_scenario_id,omitempty"`
	BehaviorUnverifiedAssertionKind string              `json:"behavior_unverified_assertion_kind,omitempty"`
	BehaviorUnverifiedAssertionSeedPath string          `json:"behavior_unverified_assertion_seed_path,omitempty"`
	ScenarioIDs                   []string              `json:"scenario_ids,omitempty"`
	BehaviorScenarioIDs           []string              `json:"behavior_scenario_ids,omitempty"`
	DeltaOutcome                  DeltaOutcome          `json:"delta_outcome,omitempty"`
	DeltaEvidencePaths            []string              `json:"delta_evidence_paths,omitempty"`
	BehaviorConfoundedScenarioIDs []string              `json:"behavior_confounded_scenario_ids,omitempty"`
	BehaviorConfoundedExtraSurfaceIDs []string          `json:"behavior_confounded_extra_surface_ids,omitempty"`
	AutoVerify                    *AutoVerifyResult     `json:"auto_verify,omitempty"`
	Evidence                      []string              `json:"evidence,omitempty"`
}

// VerificationLedger is the full per-item verification classification for
// one configured tier.
type VerificationLedger struct {
	SchemaVersion int                       `json:"schema_version"`
	InputsHash    string                    `json:"inputs_hash,omitempty"`
	Items         []VerificationLedgerItem  `json:"items"`
	ExcludedCount int                       `json:"excluded_count"`
	VerifiedCount int                       `json:"verified_count"`
	UnverifiedCount int                     `json:"unverified_count"`
}

// ItemByID returns the verification ledger item for id, if present.
func (l *VerificationLedger) ItemByID(id string) (*VerificationLedgerItem, bool) {
	for i := range l.Items {
		if l.Items[i].SurfaceID == id {
			return &l.Items[i], true
		}
	}
	return nil, false
}
