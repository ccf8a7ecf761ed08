// Package reporting writes the latest EnrichReport plus the two append-only
// JSONL logs (history, LM invocations). Grounded on the teacher's pattern of
// small, focused persistence helpers one level above raw os.WriteFile calls.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

// WriteReport overwrites enrich/report.json with the latest cycle's result.
func WriteReport(paths pathmodel.Paths, report *schema.EnrichReport) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode enrich report: %w", err)
	}
	if err := os.MkdirAll(paths.EnrichDir(), 0o755); err != nil {
		return fmt.Errorf("create enrich dir: %w", err)
	}
	return os.WriteFile(paths.Report(), raw, 0o644)
}

// ReadReport loads the most recently written report, if any.
func ReadReport(paths pathmodel.Paths) (*schema.EnrichReport, error) {
	raw, err := os.ReadFile(paths.Report())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read enrich report: %w", err)
	}
	var report schema.EnrichReport
	if err := schema.DecodeStrict(raw, &report); err != nil {
		return nil, fmt.Errorf("decode enrich report: %w", err)
	}
	return &report, nil
}

// AppendHistory appends one history entry to enrich/history.jsonl. History
// is append-only and survives cycle failure: callers write an entry with
// Success=false rather than skipping the write.
func AppendHistory(paths pathmodel.Paths, entry schema.EnrichHistoryEntry) error {
	return appendJSONL(paths, paths.History(), entry)
}

// AppendLmLog appends one LM invocation record to enrich/lm_log.jsonl.
func AppendLmLog(paths pathmodel.Paths, entry schema.LmLogEntry) error {
	return appendJSONL(paths, paths.LmLog(), entry)
}

func appendJSONL(paths pathmodel.Paths, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode jsonl entry: %w", err)
	}
	if err := os.MkdirAll(paths.EnrichDir(), 0o755); err != nil {
		return fmt.Errorf("create enrich dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}
