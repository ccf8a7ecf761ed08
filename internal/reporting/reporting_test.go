package reporting

import (
	"bufio"
	"os"
	"testing"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

func TestReadReport_MissingFileReturnsNilNoError(t *testing.T) {
	paths := pathmodel.New(t.TempDir())
	report, err := ReadReport(paths)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if report != nil {
		t.Errorf("expected nil report, got %+v", report)
	}
}

func TestWriteReadReport_Roundtrip(t *testing.T) {
	paths := pathmodel.New(t.TempDir())
	want := &schema.EnrichReport{SchemaVersion: 1, Decision: schema.DecisionComplete, Reason: "all requirements met"}

	if err := WriteReport(paths, want); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	got, err := ReadReport(paths)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if got.Decision != want.Decision || got.Reason != want.Reason {
		t.Errorf("ReadReport = %+v, want %+v", got, want)
	}
}

func TestAppendHistory_AppendsJSONLLines(t *testing.T) {
	paths := pathmodel.New(t.TempDir())

	if err := AppendHistory(paths, schema.EnrichHistoryEntry{Cycle: 1, Success: true}); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if err := AppendHistory(paths, schema.EnrichHistoryEntry{Cycle: 2, Success: false, Message: "blocked"}); err != nil {
		t.Fatalf("AppendHistory (second): %v", err)
	}

	lines := readLines(t, paths.History())
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
}

func TestAppendLmLog_AppendsJSONLLines(t *testing.T) {
	paths := pathmodel.New(t.TempDir())

	if err := AppendLmLog(paths, schema.LmLogEntry{Cycle: 1, Kind: schema.LmLogKind("surface_enrichment")}); err != nil {
		t.Fatalf("AppendLmLog: %v", err)
	}

	lines := readLines(t, paths.LmLog())
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
