package lmadapter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bman/internal/schema"
)

// ParseResponse extracts JSON from text (tolerating markdown fences and an
// enveloping result/structured_output object), fixes common LM typos, and
// decodes it into an LmResponseBatch. Grounded on the original
// implementation's parse_lm_response + fix_common_typos.
func ParseResponse(text string) (schema.LmResponseBatch, error) {
	text = strings.TrimSpace(text)
	var envelope map[string]json.RawMessage
	if json.Unmarshal([]byte(text), &envelope) == nil && envelope["responses"] == nil {
		if inner := envelope["structured_output"]; len(inner) > 0 && string(inner) != "null" {
			text = string(inner)
		} else if inner := envelope["result"]; len(inner) > 0 {
			var s string
			if json.Unmarshal(inner, &s) == nil {
				text = s
			} else {
				text = string(inner)
			}
		}
	}
	jsonText := ExtractJSON(text)
	fixed := fixCommonTypos(jsonText)

	var batch schema.LmResponseBatch
	if err := schema.DecodeStrict([]byte(fixed), &batch); err != nil {
		preview := fixed
		if len(preview) > 500 {
			preview = preview[:500]
		}
		return schema.LmResponseBatch{}, fmt.Errorf("parse LM response as JSON: %w (first 500 chars: %s)", err, preview)
	}
	return batch, nil
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// ExtractJSON pulls a JSON object out of text that may wrap it in markdown
// fences or surrounding prose. It tries, in order: a fenced code block, the
// span from the first '{' to the last '}', then the trimmed text itself.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}

	return text
}

func fixCommonTypos(s string) string {
	replacer := strings.NewReplacer(
		"outputs_differs", "outputs_differ",
		`"stdout_contain"`, `"stdout_contains"`,
		`"stdout_lack"`, `"stdout_lacks"`,
		"add_scenarios", "add_scenario",
		"add_exclusions", "add_exclusion",
	)
	s = replacer.Replace(s)
	return evaluateRepeatExpressions(s)
}

var repeatExprPattern = regexp.MustCompile(`"([^"]+)"\.repeat\(\s*([^)]+)\s*\)`)

// evaluateRepeatExpressions rewrites JavaScript-style "x".repeat(N) (or
// "x".repeat(N * M)) expressions LMs sometimes emit into literal repeated
// strings, capped at 100 repetitions, per spec §4.7.
func evaluateRepeatExpressions(s string) string {
	return repeatExprPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := repeatExprPattern.FindStringSubmatch(match)
		if groups == nil {
			return match
		}
		pattern, expr := groups[1], strings.TrimSpace(groups[2])

		count := 100
		if n, err := strconv.Atoi(expr); err == nil {
			count = n
		} else if a, b, ok := strings.Cut(expr, "*"); ok {
			an, aErr := strconv.Atoi(strings.TrimSpace(a))
			bn, bErr := strconv.Atoi(strings.TrimSpace(b))
			if aErr == nil && bErr == nil {
				count = an * bn
			}
		}
		if count > 100 {
			count = 100
		}
		if count < 0 {
			count = 0
		}
		return `"` + strings.Repeat(pattern, count) + `"`
	})
}
