// Package renderdriver invokes the operator-configured external roff
// renderer and stages its output, or — when no renderer command is
// configured — emits a minimal deterministic roff skeleton itself so the
// module runs without an external troff installed. Grounded on
// original_source/src/render.rs for section ordering and escaping (NAME,
// SYNOPSIS, OPTIONS, EXAMPLES) and the teacher's
// internal/tools/shell/execute.go subprocess-invocation idiom for the
// external-renderer path.
package renderdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"bman/internal/clock"
	"bman/internal/pathmodel"
	"bman/internal/schema"
	"bman/internal/staging"
	"bman/internal/toolconfig"
)

// RenderInput is the payload handed to the external renderer on stdin: a
// stable, renderer-agnostic projection of the surface inventory and
// examples report. The core "does not prescribe formatting" beyond this
// shape (spec §1 Non-goals).
type RenderInput struct {
	BinaryName string              `json:"binary_name"`
	Items      []schema.SurfaceItem `json:"items"`
	Examples   []RenderExample     `json:"examples,omitempty"`
}

// RenderExample is one publish=true, pass=true scenario's rendered form,
// resolved from its evidence file.
type RenderExample struct {
	ScenarioID string `json:"scenario_id"`
	CommandLine string `json:"command_line"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
	ExitCode    *int   `json:"exit_code,omitempty"`
	ExitSignal  *int   `json:"exit_signal,omitempty"`
}

// BuildRenderInput assembles a RenderInput from the surface inventory and
// an examples report, resolving each passing/published outcome's evidence
// file for its command line and captured streams.
func BuildRenderInput(paths pathmodel.Paths, binaryName string, inv *schema.SurfaceInventory, examples *schema.ExamplesReport) (RenderInput, error) {
	in := RenderInput{BinaryName: binaryName}
	if inv != nil {
		in.Items = inv.Items
	}
	if examples == nil {
		return in, nil
	}
	for _, o := range examples.Outcomes {
		if !o.Pass || o.EvidencePath == "" {
			continue
		}
		abs, err := paths.Abs(o.EvidencePath)
		if err != nil {
			return RenderInput{}, fmt.Errorf("resolve evidence path for %s: %w", o.ScenarioID, err)
		}
		raw, err := os.ReadFile(abs)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return RenderInput{}, fmt.Errorf("read evidence for %s: %w", o.ScenarioID, err)
		}
		var ev schema.ScenarioEvidence
		if err := schema.DecodeStrict(raw, &ev); err != nil {
			return RenderInput{}, fmt.Errorf("decode evidence for %s: %w", o.ScenarioID, err)
		}
		in.Examples = append(in.Examples, RenderExample{
			ScenarioID:  o.ScenarioID,
			CommandLine: strings.TrimSpace(binaryName + " " + strings.Join(ev.Argv, " ")),
			Stdout:      ev.Stdout,
			Stderr:      ev.Stderr,
			ExitCode:    ev.ExitCode,
			ExitSignal:  ev.ExitSignal,
		})
	}
	return in, nil
}

// Result is what Render staged, for the caller to fold into RenderMeta.
type Result struct {
	Roff     string
	Sections []string
}

// Render produces the roff text for in, either by invoking cfg.Renderer.Command
// as a subprocess (input on stdin, roff text on stdout) or, when
// cfg.Renderer.Command is empty, by calling Fallback.
func Render(ctx context.Context, cfg *toolconfig.Config, in RenderInput) (Result, error) {
	if cfg.Renderer.Command == "" {
		return Fallback(in), nil
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return Result{}, fmt.Errorf("encode render input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RendererTimeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Renderer.Command)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("external renderer failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return Result{Roff: stdout.String(), Sections: detectSections(stdout.String())}, nil
}

// StageAndMeta writes the rendered roff text and a RenderMeta record to
// stagingRoot, ready for publish.
func StageAndMeta(stagingRoot string, paths pathmodel.Paths, binaryName, inputsHash string, res Result, ck clock.Clock) error {
	manRel, err := paths.Rel(paths.ManPage(binaryName))
	if err != nil {
		return err
	}
	if err := staging.WriteText(stagingRoot, manRel, res.Roff); err != nil {
		return fmt.Errorf("stage man page: %w", err)
	}

	metaRel, err := paths.Rel(paths.ManMeta())
	if err != nil {
		return err
	}
	meta := schema.RenderMeta{
		SchemaVersion:      1,
		InputsHash:         inputsHash,
		BinaryName:         binaryName,
		Sections:           res.Sections,
		GeneratedAtEpochMs: ck.NowMs(),
	}
	if err := staging.WriteJSON(stagingRoot, metaRel, meta); err != nil {
		return fmt.Errorf("stage render meta: %w", err)
	}
	return nil
}

func detectSections(roff string) []string {
	var sections []string
	for _, line := range strings.Split(roff, "\n") {
		if strings.HasPrefix(line, ".SH ") {
			sections = append(sections, strings.TrimSpace(strings.TrimPrefix(line, ".SH ")))
		}
	}
	return sections
}
