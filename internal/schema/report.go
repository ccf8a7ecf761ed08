package schema

// RequirementState is the tri-state outcome of evaluating one requirement.
type RequirementState string

const (
	RequirementMet     RequirementState = "met"
	RequirementUnmet   RequirementState = "unmet"
	RequirementBlocked RequirementState = "blocked"
)

// RequirementStatus is the evaluator's verdict for one requirement.
type RequirementStatus struct {
	ID       RequirementId    `json:"id"`
	State    RequirementState `json:"state"`
	Reason   string           `json:"reason,omitempty"`
	Evidence []string         `json:"evidence,omitempty"`
	Blockers []Blocker        `json:"blockers,omitempty"`

	// Per-requirement summaries, populated only for the requirement they
	// name.
	CoverageUncoveredCount     *int                `json:"coverage_uncovered_count,omitempty"`
	BehaviorUnverifiedCount    *int                `json:"behavior_unverified_count,omitempty"`
	Verification               *VerificationSummary `json:"verification,omitempty"`
}

// VerificationSummary is the Verification requirement's per-requirement
// summary payload.
type VerificationSummary struct {
	BehaviorExcludedCount int      `json:"behavior_excluded_count"`
	BehaviorVerifiedCount int      `json:"behavior_verified_count"`
	TargetIDs             []string `json:"target_ids,omitempty"`
}

// EnrichDecision is the overall status of one apply/status computation.
type EnrichDecision string

const (
	DecisionComplete   EnrichDecision = "Complete"
	DecisionIncomplete EnrichDecision = "Incomplete"
	DecisionBlocked    EnrichDecision = "Blocked"
)

// EnrichReport is the output of one apply/status cycle.
type EnrichReport struct {
	SchemaVersion     int                 `json:"schema_version"`
	GeneratedAtEpochMs int64              `json:"generated_at_epoch_ms"`
	Decision          EnrichDecision      `json:"decision"`
	Reason            string              `json:"reason,omitempty"`
	Requirements      []RequirementStatus `json:"requirements"`
	MissingArtifacts  []string            `json:"missing_artifacts,omitempty"`
	NextAction        *NextActionEnvelope `json:"next_action,omitempty"`
}

// EnrichHistoryEntry is one append-only JSONL line recording one cycle's
// outcome, written even on failure.
type EnrichHistoryEntry struct {
	CycleEpochMs int64  `json:"cycle_epoch_ms"`
	Cycle        int    `json:"cycle"`
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	ForceUsed    bool   `json:"force_used,omitempty"`
	Decision     EnrichDecision `json:"decision,omitempty"`
}

// LmLogKind names the phase an LM invocation served.
type LmLogKind string

const (
	LmLogPrereqInference LmLogKind = "prereq_inference"
	LmLogBehavior        LmLogKind = "behavior"
	LmLogBehaviorRetry   LmLogKind = "behavior_retry"
)

// LmLogOutcome classifies the result of one LM invocation.
type LmLogOutcome string

const (
	LmOutcomeSuccess LmLogOutcome = "success"
	LmOutcomePartial LmLogOutcome = "partial"
	LmOutcomeFailed  LmLogOutcome = "failed"
)

// LmLogEntry is one append-only JSONL record of an LM invocation.
type LmLogEntry struct {
	CycleEpochMs  int64        `json:"cycle_epoch_ms"`
	Cycle         int          `json:"cycle"`
	Kind          LmLogKind    `json:"kind"`
	Outcome       LmLogOutcome `json:"outcome"`
	TargetCount   int          `json:"target_count"`
	AppliedCount  int          `json:"applied_count"`
	ErrorCount    int          `json:"error_count"`
	DurationMs    int64        `json:"duration_ms"`
	Preview       string       `json:"preview,omitempty"`
	PromptPath    string       `json:"prompt_path,omitempty"`
	ResponsePath  string       `json:"response_path,omitempty"`
}
