package schema

import (
	"encoding/json"
	"fmt"
)

// LmActionKind discriminates the LmAction tagged union.
type LmActionKind string

const (
	LmActionAddScenario         LmActionKind = "add_scenario"
	LmActionAddBehaviorScenario LmActionKind = "add_behavior_scenario"
	LmActionFixAssertions       LmActionKind = "fix_assertions"
	LmActionAddValueExamples    LmActionKind = "add_value_examples"
	LmActionAddRequiresArgv     LmActionKind = "add_requires_argv"
	LmActionUpdateBaseline      LmActionKind = "update_baseline"
	LmActionAddExclusion        LmActionKind = "add_exclusion"
	LmActionSkip                LmActionKind = "skip"
)

// LmAction is the tagged union of mutations an LM response may propose.
type LmAction interface {
	Kind() LmActionKind
}

// AddScenarioAction upserts Scenario into the plan, matched by id. Used for
// both add_scenario and add_behavior_scenario.
type AddScenarioAction struct {
	ActionKind LmActionKind `json:"-"`
	Scenario   ScenarioSpec `json:"scenario"`
}

func (a AddScenarioAction) Kind() LmActionKind { return a.ActionKind }

// FixAssertionsAction replaces the assertions of an existing scenario.
type FixAssertionsAction struct {
	ScenarioID string              `json:"scenario_id"`
	Assertions []BehaviorAssertion `json:"assertions"`
}

func (FixAssertionsAction) Kind() LmActionKind { return LmActionFixAssertions }

// AddValueExamplesAction appends to an overlay's invocation.value_examples.
type AddValueExamplesAction struct {
	ValueExamples []string `json:"value_examples"`
}

func (AddValueExamplesAction) Kind() LmActionKind { return LmActionAddValueExamples }

// AddRequiresArgvAction appends to an overlay's invocation.requires_argv.
type AddRequiresArgvAction struct {
	RequiresArgv []string `json:"requires_argv"`
}

func (AddRequiresArgvAction) Kind() LmActionKind { return LmActionAddRequiresArgv }

// UpdateBaselineAction sets baseline_scenario_id on an existing scenario.
type UpdateBaselineAction struct {
	ScenarioID         string `json:"scenario_id"`
	BaselineScenarioID string `json:"baseline_scenario_id"`
}

func (UpdateBaselineAction) Kind() LmActionKind { return LmActionUpdateBaseline }

// AddExclusionAction attaches a behavior_exclusion overlay.
type AddExclusionAction struct {
	ReasonCode BehaviorExclusionReason `json:"reason_code"`
	Note       string                  `json:"note"`
}

func (AddExclusionAction) Kind() LmActionKind { return LmActionAddExclusion }

// SkipAction defers action on a target this cycle.
type SkipAction struct {
	Reason string `json:"reason,omitempty"`
}

func (SkipAction) Kind() LmActionKind { return LmActionSkip }

// LmDecisionResponse is one response from the LM: the surface it targets and
// the action proposed for it.
type LmDecisionResponse struct {
	SurfaceID string
	Action    LmAction
}

func (r LmDecisionResponse) MarshalJSON() ([]byte, error) {
	actionJSON, err := marshalLmAction(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		SurfaceID string          `json:"surface_id"`
		Action    json.RawMessage `json:"action"`
	}{SurfaceID: r.SurfaceID, Action: actionJSON})
}

func marshalLmAction(a LmAction) (json.RawMessage, error) {
	switch v := a.(type) {
	case AddScenarioAction:
		kind := v.ActionKind
		if kind == "" {
			kind = LmActionAddBehaviorScenario
		}
		return json.Marshal(struct {
			Kind     string       `json:"kind"`
			Scenario ScenarioSpec `json:"scenario"`
		}{Kind: string(kind), Scenario: v.Scenario})
	case FixAssertionsAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			FixAssertionsAction
		}{Kind: string(v.Kind()), FixAssertionsAction: v})
	case AddValueExamplesAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			AddValueExamplesAction
		}{Kind: string(v.Kind()), AddValueExamplesAction: v})
	case AddRequiresArgvAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			AddRequiresArgvAction
		}{Kind: string(v.Kind()), AddRequiresArgvAction: v})
	case UpdateBaselineAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			UpdateBaselineAction
		}{Kind: string(v.Kind()), UpdateBaselineAction: v})
	case AddExclusionAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			AddExclusionAction
		}{Kind: string(v.Kind()), AddExclusionAction: v})
	case SkipAction:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			SkipAction
		}{Kind: string(v.Kind()), SkipAction: v})
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown LmAction type %T", v)
	}
}

func (r *LmDecisionResponse) UnmarshalJSON(data []byte) error {
	var env struct {
		SurfaceID string          `json:"surface_id"`
		Action    json.RawMessage `json:"action"`
	}
	if err := DecodeStrict(data, &env); err != nil {
		return fmt.Errorf("decode lm response: %w", err)
	}
	r.SurfaceID = env.SurfaceID
	action, err := unmarshalLmAction(env.Action)
	if err != nil {
		return err
	}
	r.Action = action
	return nil
}

func unmarshalLmAction(data json.RawMessage) (LmAction, error) {
	var head struct {
		Kind LmActionKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode lm action kind: %w", err)
	}
	switch head.Kind {
	case LmActionAddScenario, LmActionAddBehaviorScenario:
		var body struct {
			Kind     string       `json:"kind"`
			Scenario ScenarioSpec `json:"scenario"`
		}
		if err := DecodeStrict(data, &body); err != nil {
			return nil, err
		}
		return AddScenarioAction{ActionKind: head.Kind, Scenario: body.Scenario}, nil
	case LmActionFixAssertions:
		var a FixAssertionsAction
		if err := decodeTagged(data, &a); err != nil {
			return nil, err
		}
		return a, nil
	case LmActionAddValueExamples:
		var a AddValueExamplesAction
		if err := decodeTagged(data, &a); err != nil {
			return nil, err
		}
		return a, nil
	case LmActionAddRequiresArgv:
		var a AddRequiresArgvAction
		if err := decodeTagged(data, &a); err != nil {
			return nil, err
		}
		return a, nil
	case LmActionUpdateBaseline:
		var a UpdateBaselineAction
		if err := decodeTagged(data, &a); err != nil {
			return nil, err
		}
		return a, nil
	case LmActionAddExclusion:
		var a AddExclusionAction
		if err := decodeTagged(data, &a); err != nil {
			return nil, err
		}
		return a, nil
	case LmActionSkip:
		var a SkipAction
		if err := decodeTagged(data, &a); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown lm action kind %q", head.Kind)
	}
}

// decodeTagged decodes data into dst, tolerating (and ignoring) the "kind"
// discriminator field that every tagged-union JSON body carries.
func decodeTagged[T any](data json.RawMessage, dst *T) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode lm action body: %w", err)
	}
	delete(fields, "kind")
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode lm action body: %w", err)
	}
	if err := DecodeStrict(body, dst); err != nil {
		return fmt.Errorf("decode lm action body: %w", err)
	}
	return nil
}

// LmResponseBatch is the full LM response: a schema version and the list of
// per-surface decisions.
type LmResponseBatch struct {
	SchemaVersion int                   `json:"schema_version"`
	Responses     []LmDecisionResponse  `json:"responses"`
}
