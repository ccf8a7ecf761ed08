package schema

import "fmt"

// DiscoveryStatus reports the health of one surface lens evaluation.
type DiscoveryStatus string

const (
	DiscoveryUsed    DiscoveryStatus = "used"
	DiscoveryEmpty   DiscoveryStatus = "empty"
	DiscoveryMissing DiscoveryStatus = "missing"
	DiscoverySkipped DiscoveryStatus = "skipped"
	DiscoveryError   DiscoveryStatus = "error"
)

// DiscoveryEntry records one lens's evaluation status.
type DiscoveryEntry struct {
	Code     string          `json:"code"`
	Status   DiscoveryStatus `json:"status"`
	Evidence []string        `json:"evidence,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// ValueArity classifies how many values an option's invocation accepts.
type ValueArity string

const (
	ArityRequired ValueArity = "required"
	ArityOptional ValueArity = "optional"
	ArityNone     ValueArity = "none"
	ArityUnknown  ValueArity = "unknown"
)

// ValueSeparator classifies how an option's value is attached to its flag.
type ValueSeparator string

const (
	SeparatorEquals  ValueSeparator = "equals"
	SeparatorSpace   ValueSeparator = "space"
	SeparatorEither  ValueSeparator = "either"
	SeparatorUnknown ValueSeparator = "unknown"
)

// Invocation describes how a surface item is invoked.
type Invocation struct {
	ValueArity       ValueArity     `json:"value_arity"`
	ValueSeparator   ValueSeparator `json:"value_separator"`
	ValuePlaceholder string         `json:"value_placeholder,omitempty"`
	ValueExamples    []string       `json:"value_examples,omitempty"`
	RequiresArgv     []string       `json:"requires_argv,omitempty"`
}

// SurfaceItem is one documented entity of the target binary.
type SurfaceItem struct {
	ID           string       `json:"id"`
	Display      string       `json:"display"`
	Description  string       `json:"description,omitempty"`
	ParentID     string       `json:"parent_id,omitempty"`
	ContextArgv  []string     `json:"context_argv,omitempty"`
	Forms        []string     `json:"forms,omitempty"`
	Invocation   Invocation   `json:"invocation"`
	Evidence     []string     `json:"evidence,omitempty"`
}

// IsEntryPoint reports whether the item's own id is the last element of its
// context_argv, per SurfaceDiscovery's entry-point check.
func (s SurfaceItem) IsEntryPoint() bool {
	if len(s.ContextArgv) == 0 {
		return false
	}
	return s.ContextArgv[len(s.ContextArgv)-1] == s.ID
}

// Blocker mirrors bmanerr.Blocker's JSON shape for embedding inside
// SurfaceInventory without an import cycle.
type Blocker struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Evidence   []string       `json:"evidence,omitempty"`
	NextAction map[string]any `json:"next_action,omitempty"`
}

// SurfaceInventory is the derived set of options/subcommands for one binary.
type SurfaceInventory struct {
	SchemaVersion int              `json:"schema_version"`
	BinaryName    string           `json:"binary_name,omitempty"`
	InputsHash    string           `json:"inputs_hash,omitempty"`
	Discovery     []DiscoveryEntry `json:"discovery"`
	Items         []SurfaceItem    `json:"items"`
	Blockers      []Blocker        `json:"blockers,omitempty"`
}

// MeaningfulItemCount counts items with a non-empty id, the open-question
// resolution for "meaningful surface items" (Design Notes, Open Questions).
func (inv *SurfaceInventory) MeaningfulItemCount() int {
	n := 0
	for _, it := range inv.Items {
		if it.ID != "" {
			n++
		}
	}
	return n
}

// MergeItem unions an incoming item into an existing one with the same id,
// following §3's merge semantics: union forms/examples/requires_argv,
// promote value_arity/separator conservatively, prefer non-empty
// display/description.
func MergeItem(existing, incoming SurfaceItem) SurfaceItem {
	out := existing
	out.Forms = unionStrings(existing.Forms, incoming.Forms)
	out.ContextArgv = preferNonEmptySlice(existing.ContextArgv, incoming.ContextArgv)
	out.Evidence = unionStrings(existing.Evidence, incoming.Evidence)
	if out.Display == "" {
		out.Display = incoming.Display
	}
	if out.Description == "" {
		out.Description = incoming.Description
	}
	if out.ParentID == "" {
		out.ParentID = incoming.ParentID
	}
	out.Invocation = mergeInvocation(existing.Invocation, incoming.Invocation)
	return out
}

func mergeInvocation(a, b Invocation) Invocation {
	out := a
	out.ValueArity = promoteArity(a.ValueArity, b.ValueArity)
	out.ValueSeparator = promoteSeparator(a.ValueSeparator, b.ValueSeparator)
	if out.ValuePlaceholder == "" {
		out.ValuePlaceholder = b.ValuePlaceholder
	}
	out.ValueExamples = unionStrings(a.ValueExamples, b.ValueExamples)
	out.RequiresArgv = unionStrings(a.RequiresArgv, b.RequiresArgv)
	return out
}

func promoteArity(a, b ValueArity) ValueArity {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}
	return ArityUnknown
}

func promoteSeparator(a, b ValueSeparator) ValueSeparator {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}
	if (a == SeparatorEquals && b == SeparatorSpace) || (a == SeparatorSpace && b == SeparatorEquals) {
		return SeparatorEither
	}
	return SeparatorUnknown
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func preferNonEmptySlice(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}

// BehaviorExclusionReason enumerates why an item cannot be verified in the
// current environment.
type BehaviorExclusionReason string

const (
	ReasonUnsafeSideEffects    BehaviorExclusionReason = "unsafe_side_effects"
	ReasonFixtureGap           BehaviorExclusionReason = "fixture_gap"
	ReasonAssertionGap         BehaviorExclusionReason = "assertion_gap"
	ReasonNondeterministic     BehaviorExclusionReason = "nondeterministic"
	ReasonRequiresInteractiveTTY BehaviorExclusionReason = "requires_interactive_tty"
)

// BehaviorExclusionEvidence points to the evidence backing an exclusion.
type BehaviorExclusionEvidence struct {
	DeltaVariantPath string   `json:"delta_variant_path,omitempty"`
	DeltaIDs         []string `json:"delta_ids,omitempty"`
}

// BehaviorExclusion is a declaration that an item cannot be verified, with
// a typed reason and evidence.
type BehaviorExclusion struct {
	ReasonCode BehaviorExclusionReason  `json:"reason_code"`
	Note       string                   `json:"note,omitempty"`
	Evidence   BehaviorExclusionEvidence `json:"evidence"`
}

// Validate checks the BehaviorExclusion invariants: at least one evidence
// reference, note length bound.
func (e BehaviorExclusion) Validate() error {
	if len(e.Note) > 200 {
		return fmt.Errorf("behavior_exclusion note exceeds 200 characters")
	}
	if e.Evidence.DeltaVariantPath == "" && len(e.Evidence.DeltaIDs) == 0 {
		return fmt.Errorf("behavior_exclusion requires at least one evidence reference")
	}
	return nil
}

// PrereqOverride lets an overlay replace the prereqs computed for a surface.
type PrereqOverride struct {
	Keys []string `json:"keys"`
}

// SurfaceOverlay is a human- or LM-authored patch to one surface item.
type SurfaceOverlay struct {
	ID               string             `json:"id"`
	Kind             string             `json:"kind"`
	Invocation       *Invocation        `json:"invocation,omitempty"`
	BehaviorExclusion *BehaviorExclusion `json:"behavior_exclusion,omitempty"`
	Prereqs          []string           `json:"prereqs,omitempty"`
	PrereqOverride   *PrereqOverride    `json:"prereq_override,omitempty"`
}

// IdentityItem is the minimal identity-only overlay item, merged before
// invocation/behavior overlays.
type IdentityItem struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Display string `json:"display,omitempty"`
}

// SurfaceOverlays is the full set of operator/LM patches layered on top of
// lens-derived surface items.
type SurfaceOverlays struct {
	SchemaVersion int              `json:"schema_version"`
	Items         []IdentityItem   `json:"items,omitempty"`
	Overlays      []SurfaceOverlay `json:"overlays"`
}

// OverlayByID returns the overlay entry for id, if present.
func (o *SurfaceOverlays) OverlayByID(id string) (*SurfaceOverlay, bool) {
	for i := range o.Overlays {
		if o.Overlays[i].ID == id {
			return &o.Overlays[i], true
		}
	}
	return nil, false
}

// UpsertOverlay replaces the overlay with the same id, or appends it.
func (o *SurfaceOverlays) UpsertOverlay(ov SurfaceOverlay) {
	for i := range o.Overlays {
		if o.Overlays[i].ID == ov.ID {
			o.Overlays[i] = ov
			return
		}
	}
	o.Overlays = append(o.Overlays, ov)
}
