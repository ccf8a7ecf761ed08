package renderdriver

import (
	"fmt"
	"sort"
	"strings"

	"bman/internal/schema"
)

// Fallback emits a minimal, deterministic roff document when no external
// renderer is configured: NAME, SYNOPSIS, OPTIONS (one .TP per surface
// item), and EXAMPLES (one passing, published scenario per block).
// Section ordering and the .TP/.PP idiom are grounded on
// original_source/src/render.rs; this is deliberately a skeleton, not a
// port of that file's full layout engine — formatting quality is an
// out-of-scope concern for the core (spec §1 Non-goals).
func Fallback(in RenderInput) Result {
	var b strings.Builder
	sections := []string{"NAME", "SYNOPSIS"}

	fmt.Fprintf(&b, ".TH %s 1\n", strings.ToUpper(in.BinaryName))
	fmt.Fprintf(&b, ".SH NAME\n%s\n", escape(in.BinaryName))
	fmt.Fprintf(&b, ".SH SYNOPSIS\n.B %s\n[OPTIONS]\n", escape(in.BinaryName))

	items := make([]string, 0, len(in.Items))
	byID := map[string]string{}
	for _, it := range in.Items {
		if it.ID == "" || !it.IsEntryPoint() {
			continue
		}
		items = append(items, it.ID)
		byID[it.ID] = renderOption(it)
	}
	if len(items) > 0 {
		sort.Strings(items)
		b.WriteString(".SH OPTIONS\n")
		for _, id := range items {
			b.WriteString(byID[id])
		}
		sections = append(sections, "OPTIONS")
	}

	if len(in.Examples) > 0 {
		b.WriteString(".SH EXAMPLES\n")
		for _, ex := range in.Examples {
			fmt.Fprintf(&b, ".PP\n.B %s\n", escape(ex.CommandLine))
			if ex.Stdout != "" {
				fmt.Fprintf(&b, ".br\n%s\n", escape(truncate(ex.Stdout, 400)))
			}
		}
		sections = append(sections, "EXAMPLES")
	}

	return Result{Roff: b.String(), Sections: sections}
}

func renderOption(it schema.SurfaceItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, ".TP\n.B %s\n", escape(it.Display))
	if it.Description != "" {
		fmt.Fprintf(&b, "%s\n", escape(it.Description))
	}
	return b.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "-", "\\-")
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
