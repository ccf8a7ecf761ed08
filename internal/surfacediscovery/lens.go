// Package surfacediscovery builds inventory/surface.json from scenario
// evidence (via SQL lenses over the external fact pack) plus overlays,
// deterministically, and reports discovery quality. Grounded on the
// teacher's internal/mcp/transport_stdio.go subprocess-pipe idiom for
// driving an external process and parsing its JSON output.
package surfacediscovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"bman/internal/schema"
)

// LensEngine invokes the external SQL query engine against the fact pack's
// parquet files, per the external process contract in spec §6: the
// engine's JSON-output flag plus a rendered query string; stdout is a JSON
// array of row objects.
type LensEngine struct {
	Command    string
	JSONFlag   string
	FactsDir   string
}

// Row is one untyped result row from a lens query.
type Row map[string]any

// Eval renders templatePath's {{name}} placeholders against fact file paths
// under FactsDir (SQL-quoting single quotes) and runs the query engine,
// returning its JSON row array.
func (e LensEngine) Eval(ctx context.Context, templatePath string) ([]Row, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("read lens template %s: %w", templatePath, err)
	}
	query, err := renderTemplate(string(raw), e.FactsDir)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.Command, e.JSONFlag, query)
	cmd.Dir = e.FactsDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("query engine failed: %w: %s", err, stderr.String())
	}

	var rows []Row
	if err := json.Unmarshal(stdout.Bytes(), &rows); err != nil {
		return nil, fmt.Errorf("parse query engine output: %w", err)
	}
	return rows, nil
}

func renderTemplate(template, factsDir string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(template) {
		start := strings.Index(template[i:], "{{")
		if start < 0 {
			b.WriteString(template[i:])
			break
		}
		b.WriteString(template[i : i+start])
		i += start + 2
		end := strings.Index(template[i:], "}}")
		if end < 0 {
			return "", fmt.Errorf("unterminated {{ in lens template")
		}
		name := strings.TrimSpace(template[i : i+end])
		i += end + 2
		quoted := strings.ReplaceAll(filepath.Join(factsDir, name), "'", "''")
		b.WriteString(quoted)
	}
	return b.String(), nil
}

// SurfaceRow is one discovery-lens row shape, parsed from the engine's
// generic Row.
type SurfaceRow struct {
	ID                string   `json:"id"`
	Display           string   `json:"display"`
	Description       string   `json:"description,omitempty"`
	ParentID          string   `json:"parent_id,omitempty"`
	ContextArgv       []string `json:"context_argv,omitempty"`
	Forms             []string `json:"forms,omitempty"`
	ValueArity        string   `json:"value_arity,omitempty"`
	ValueSeparator    string   `json:"value_separator,omitempty"`
	ValuePlaceholder  string   `json:"value_placeholder,omitempty"`
	EvidencePath      string   `json:"evidence_path,omitempty"`
	MultiCommandHint  bool     `json:"multi_command_hint,omitempty"`
}

// ParseRows decodes the engine's raw rows into SurfaceRow via a JSON
// roundtrip, tolerant of rows missing optional fields.
func ParseRows(rows []Row) ([]SurfaceRow, error) {
	out := make([]SurfaceRow, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("re-marshal lens row: %w", err)
		}
		var sr SurfaceRow
		if err := json.Unmarshal(data, &sr); err != nil {
			return nil, fmt.Errorf("parse lens row: %w", err)
		}
		out = append(out, sr)
	}
	return out, nil
}

// ToItem converts a SurfaceRow into a SurfaceItem.
func (r SurfaceRow) ToItem() schema.SurfaceItem {
	item := schema.SurfaceItem{
		ID:          r.ID,
		Display:     r.Display,
		Description: r.Description,
		ParentID:    r.ParentID,
		ContextArgv: r.ContextArgv,
		Forms:       r.Forms,
	}
	if r.EvidencePath != "" {
		item.Evidence = []string{r.EvidencePath}
	}
	item.Invocation = schema.Invocation{
		ValueArity:       schema.ValueArity(orDefault(r.ValueArity, string(schema.ArityUnknown))),
		ValueSeparator:   schema.ValueSeparator(orDefault(r.ValueSeparator, string(schema.SeparatorUnknown))),
		ValuePlaceholder: r.ValuePlaceholder,
	}
	return item
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
