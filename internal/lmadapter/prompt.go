package lmadapter

import (
	"fmt"
	"strings"
)

// BuildBehaviorPrompt assembles the behavior-verification prompt: a
// reason-keyed template section, a context section of scaffold hints, and
// the enumerated target ids, per spec §4.7. The reason code of the first
// target governs the template section, matching the original
// implementation's single-reason-per-cycle batching.
func BuildBehaviorPrompt(req Request) string {
	binaryName := req.BinaryName
	if binaryName == "" {
		binaryName = "<binary>"
	}

	reasonCode := "unknown"
	retryCount := 0
	if len(req.Targets) > 0 {
		reasonCode = string(req.Targets[0].ReasonCode)
		retryCount = req.Targets[0].RetryCount
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are helping verify behavior documentation for the `%s` command.\n\n", binaryName)
	fmt.Fprintf(&b, "# Context\nBinary: %s\n\n", binaryName)

	b.WriteString("# Decision Items\n")
	b.WriteString(reasonSection(reasonCode, retryCount))
	b.WriteString("\n")

	if ctx := buildContextSection(req); ctx != "" {
		b.WriteString(ctx)
	}

	b.WriteString("## Targets\n")
	for _, t := range req.Targets {
		fmt.Fprintf(&b, "- `%s` (reason: %s)\n", t.SurfaceID, t.ReasonCode)
	}

	b.WriteString(responseFormatSection())
	return b.String()
}

func reasonSection(reasonCode string, retryCount int) string {
	switch reasonCode {
	case "no_scenario":
		return "Each target has no scenario exercising it yet. Propose an " +
			"`add_behavior_scenario` action with a baseline-comparable argv " +
			"and at least one assertion.\n"
	case "outputs_equal":
		if retryCount > 0 {
			return fmt.Sprintf("The previous scenario's variant output was "+
				"identical to its baseline %d time(s) in a row. Propose an "+
				"argv or seed change that will actually exercise the "+
				"option's distinct behavior.\n", retryCount)
		}
		return "The scenario's variant output was identical to its " +
			"baseline. Propose a change (argv, seed, or companion flags) " +
			"that makes the option's effect observable.\n"
	case "assertion_failed":
		return "The existing scenario's assertions did not hold against " +
			"the executed evidence. Propose `fix_assertions` with " +
			"assertions that match what was actually observed, or a " +
			"revised scenario.\n"
	case "required_value_missing":
		return "The option requires a value but none was supplied. Propose " +
			"`add_value_examples` with concrete example values, or a " +
			"scenario that supplies one.\n"
	default:
		return fmt.Sprintf("Handle these items based on the reason code: %s\n", reasonCode)
	}
}

func buildContextSection(req Request) string {
	var b strings.Builder
	if req.Guidance != "" {
		fmt.Fprintf(&b, "## Guidance\n%s\n\n", req.Guidance)
	}
	if len(req.ValueHints) > 0 {
		b.WriteString("## Options Requiring Values\n")
		for _, h := range req.ValueHints {
			fmt.Fprintf(&b, "- `%s` (placeholder: %s): %s\n", h.OptionID, h.Placeholder, h.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func responseFormatSection() string {
	return `
# Response Format

Respond with a single JSON object, no markdown fences, matching:

` + "```json" + `
{
  "schema_version": 1,
  "responses": [
    {
      "surface_id": "--option",
      "action": {
        "kind": "add_behavior_scenario",
        "scenario": {
          "id": "verify_option",
          "kind": "behavior",
          "argv": ["--option"],
          "covers": ["--option"],
          "publish": true,
          "assertions": [{"kind": "variant_stdout_differs_from_baseline"}]
        }
      }
    }
  ]
}
` + "```" + `

Every surface_id must be one of the targets listed above. Respond with only
the JSON object.
`
}

// BuildRetryPrompt rebuilds the prompt after a parse or validation failure,
// including the previous error and a truncated excerpt of the previous
// response so the LM can correct itself, per spec §4.7.
func BuildRetryPrompt(req Request, lastErr, lastResponse string) string {
	var b strings.Builder
	binaryName := req.BinaryName
	if binaryName == "" {
		binaryName = "<binary>"
	}

	fmt.Fprintf(&b, "You are helping verify behavior documentation for the `%s` command.\n\n", binaryName)
	b.WriteString("## Previous Response Error\n\n")
	b.WriteString("Your previous response could not be used. Please fix the error and try again.\n\n")
	fmt.Fprintf(&b, "**Error:** %s\n\n", lastErr)

	if lastResponse != "" {
		snippet := lastResponse
		if len(snippet) > 1000 {
			snippet = snippet[:1000] + "...(truncated)"
		}
		fmt.Fprintf(&b, "**Your previous response (may be truncated):**\n```\n%s\n```\n\n", snippet)
	}

	b.WriteString("## Original Task\n\n")
	b.WriteString("Generate responses for these targets:\n")
	for _, t := range req.Targets {
		fmt.Fprintf(&b, "- `%s`\n", t.SurfaceID)
	}

	b.WriteString(responseFormatSection())
	b.WriteString(`
Common issues to avoid:
- Missing "surface_id" field
- Using an action kind other than the ones listed in this prompt
- JavaScript expressions inside string values - use literal strings only
- Invalid JSON syntax, or wrapping the JSON in markdown fences

Respond ONLY with the corrected JSON object, no other text.
`)
	return b.String()
}

// BuildPrereqPrompt renders the prereq-inference prompt: one entry per
// surface item lacking a surface_map reference, with any existing
// definitions attached for reuse, per spec §4.7.
func BuildPrereqPrompt(binaryName string, surfaceIDs []string, existingDefinitions map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are inferring reusable test fixtures (prerequisites) for the "+
		"`%s` command's options.\n\n", binaryName)

	b.WriteString("## Options Needing a Prerequisite\n")
	for _, id := range surfaceIDs {
		fmt.Fprintf(&b, "- `%s`\n", id)
	}
	b.WriteString("\n")

	if len(existingDefinitions) > 0 {
		b.WriteString("## Existing Definitions (reuse where applicable)\n")
		for key, desc := range existingDefinitions {
			fmt.Fprintf(&b, "- `%s`: %s\n", key, desc)
		}
		b.WriteString("\n")
	}

	b.WriteString(`## Response Format

Respond with a single JSON object, no markdown fences:

` + "```json" + `
{
  "definitions": {
    "tmp_config_file": {
      "description": "a minimal config file the option can read",
      "seed": {"entries": [{"path": "config.toml", "kind": "file", "contents": "..."}]}
    }
  },
  "surface_map": {
    "--config": ["tmp_config_file"]
  }
}
` + "```" + `
`)
	return b.String()
}
