// Package logging provides audit logging that outputs structured,
// queryable facts for one apply cycle: surface discovery, scenario runs,
// ledger builds, LM adapter calls, and the render/staging pipeline.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the kind of audit event, which in turn picks the
// predicate shape used by generateFact.
type AuditEventType string

const (
	// Surface discovery -> discovery_run/4
	AuditDiscoveryRun      AuditEventType = "discovery_run"
	AuditDiscoveryComplete AuditEventType = "discovery_complete"
	AuditDiscoveryError    AuditEventType = "discovery_error"

	// Scenario engine runs -> scenario_run/5
	AuditScenarioRun      AuditEventType = "scenario_run"
	AuditScenarioComplete AuditEventType = "scenario_complete"
	AuditScenarioCached   AuditEventType = "scenario_cached"
	AuditScenarioError    AuditEventType = "scenario_error"

	// Coverage/verification ledger builds -> ledger_build/4
	AuditLedgerBuild AuditEventType = "ledger_build"

	// Requirement evaluation -> requirement_eval/4
	AuditRequirementEval AuditEventType = "requirement_eval"

	// LM adapter calls -> lm_call/6
	AuditLmRequest  AuditEventType = "lm_request"
	AuditLmResponse AuditEventType = "lm_response"
	AuditLmError    AuditEventType = "lm_error"

	// Apply cycle lifecycle -> apply_cycle/4
	AuditApplyCycleStart AuditEventType = "apply_cycle_start"
	AuditApplyCycleEnd   AuditEventType = "apply_cycle_end"

	// Progress/auto-exclude counters -> progress_event/4
	AuditProgressStalled     AuditEventType = "progress_stalled"
	AuditProgressAutoExclude AuditEventType = "progress_auto_exclude"

	// Render + staging pipeline -> stage_op/5
	AuditRenderRun     AuditEventType = "render_run"
	AuditStagingWrite  AuditEventType = "staging_write"
	AuditStagingPublish AuditEventType = "staging_publish"

	// File operations -> file_op/5
	AuditFileRead   AuditEventType = "file_read"
	AuditFileWrite  AuditEventType = "file_write"
	AuditFileDelete AuditEventType = "file_delete"
	AuditFileError  AuditEventType = "file_error"

	// Error events -> error_event/4
	AuditErrorGeneric  AuditEventType = "error_generic"
	AuditErrorCritical AuditEventType = "error_critical"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent represents one structured audit log entry.
// Format: predicate(timestamp, category, ...args)
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`      // Unix milliseconds
	EventType  AuditEventType         `json:"event"`   // Maps to a predicate
	Category   string                 `json:"cat"`     // Log category
	CycleID    string                 `json:"cycle"`   // Apply cycle correlation
	RequestID  string                 `json:"req"`     // Request correlation
	SurfaceID  string                 `json:"surface"` // Surface item ID if applicable
	Target     string                 `json:"target"`  // Target of operation
	Action     string                 `json:"action"`  // Action being performed
	Success    bool                   `json:"success"` // Operation succeeded
	DurationMs int64                  `json:"dur_ms"`  // Duration in milliseconds
	Error      string                 `json:"error"`   // Error message if failed
	Message    string                 `json:"msg"`     // Human-readable message
	Fields     map[string]interface{} `json:"fields"`  // Additional structured fields
	Fact       string                 `json:"fact"`    // Pre-formatted queryable fact
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger handles structured audit logging for one apply cycle.
type AuditLogger struct {
	cycleID   string
	category  Category
	surfaceID string
}

// InitAudit initializes the audit logging system.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# Audit log started at %s\n# Format: newline-delimited structured events\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)

	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithCycle creates an audit logger scoped to an apply cycle.
func AuditWithCycle(cycleID string) *AuditLogger {
	return &AuditLogger{cycleID: cycleID}
}

// AuditWithSurface creates an audit logger scoped to a surface item.
func AuditWithSurface(surfaceID string) *AuditLogger {
	return &AuditLogger{surfaceID: surfaceID}
}

// AuditWithContext creates a fully-scoped audit logger.
func AuditWithContext(cycleID, surfaceID string, category Category) *AuditLogger {
	return &AuditLogger{
		cycleID:   cycleID,
		surfaceID: surfaceID,
		category:  category,
	}
}

// =============================================================================
// AUDIT LOGGING METHODS
// =============================================================================

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.CycleID == "" && a.cycleID != "" {
		event.CycleID = a.cycleID
	}
	if event.SurfaceID == "" && a.surfaceID != "" {
		event.SurfaceID = a.surfaceID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}
	if event.Fields == nil {
		event.Fields = make(map[string]interface{})
	}

	event.Fact = generateFact(event)

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// generateFact creates a predicate-shaped fact string from an event.
func generateFact(e AuditEvent) string {
	switch e.EventType {
	case AuditDiscoveryRun, AuditDiscoveryComplete, AuditDiscoveryError:
		return fmt.Sprintf("discovery_run(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, e.Target, e.Success)

	case AuditScenarioRun, AuditScenarioComplete, AuditScenarioCached, AuditScenarioError:
		return fmt.Sprintf("scenario_run(%d, /%s, \"%s\", %v, %d).",
			e.Timestamp, e.EventType, e.Target, e.Success, e.DurationMs)

	case AuditLedgerBuild:
		count := 0
		if c, ok := e.Fields["item_count"].(int); ok {
			count = c
		}
		return fmt.Sprintf("ledger_build(%d, \"%s\", %v, %d).",
			e.Timestamp, e.Target, e.Success, count)

	case AuditRequirementEval:
		return fmt.Sprintf("requirement_eval(%d, \"%s\", \"%s\", %v).",
			e.Timestamp, e.Target, e.Action, e.Success)

	case AuditLmRequest, AuditLmResponse, AuditLmError:
		attempt := 0
		if n, ok := e.Fields["attempt"].(int); ok {
			attempt = n
		}
		return fmt.Sprintf("lm_call(%d, /%s, \"%s\", %v, %d, %d).",
			e.Timestamp, e.EventType, e.SurfaceID, e.Success, e.DurationMs, attempt)

	case AuditApplyCycleStart, AuditApplyCycleEnd:
		return fmt.Sprintf("apply_cycle(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, e.CycleID, e.Success)

	case AuditProgressStalled, AuditProgressAutoExclude:
		return fmt.Sprintf("progress_event(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, e.SurfaceID, e.Success)

	case AuditRenderRun, AuditStagingWrite, AuditStagingPublish:
		return fmt.Sprintf("stage_op(%d, /%s, \"%s\", %v, %d).",
			e.Timestamp, e.EventType, e.Target, e.Success, e.DurationMs)

	case AuditFileRead, AuditFileWrite, AuditFileDelete, AuditFileError:
		size := int64(0)
		if s, ok := e.Fields["size"].(int64); ok {
			size = s
		}
		return fmt.Sprintf("file_op(%d, /%s, \"%s\", %v, %d).",
			e.Timestamp, e.EventType, e.Target, e.Success, size)

	case AuditErrorGeneric, AuditErrorCritical:
		return fmt.Sprintf("error_event(%d, /%s, \"%s\", \"%s\").",
			e.Timestamp, e.EventType, e.Category, escapeString(e.Error))

	default:
		return fmt.Sprintf("audit_event(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.Category, escapeString(e.Message), e.Success)
	}
}

func escapeString(s string) string {
	// strings.Builder avoids the O(N^2) cost of repeated string concatenation.
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)

	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// DiscoveryRun logs a surface discovery pass.
func (a *AuditLogger) DiscoveryRun(binaryPath string, itemCount int, durationMs int64, success bool) {
	a.Log(AuditEvent{
		EventType:  AuditDiscoveryComplete,
		Target:     binaryPath,
		Success:    success,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"item_count": itemCount},
		Message:    fmt.Sprintf("Discovery: %s -> %d items (%dms)", binaryPath, itemCount, durationMs),
	})
}

// ScenarioRun logs a scenario engine invocation.
func (a *AuditLogger) ScenarioRun(scenarioID string, cached bool, durationMs int64, success bool, errMsg string) {
	eventType := AuditScenarioComplete
	if cached {
		eventType = AuditScenarioCached
	}
	if !success {
		eventType = AuditScenarioError
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     scenarioID,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Scenario %s: cached=%v success=%v (%dms)", scenarioID, cached, success, durationMs),
	})
}

// LedgerBuild logs a coverage or verification ledger build.
func (a *AuditLogger) LedgerBuild(kind string, itemCount int, success bool) {
	a.Log(AuditEvent{
		EventType: AuditLedgerBuild,
		Target:    kind,
		Success:   success,
		Fields:    map[string]interface{}{"item_count": itemCount},
		Message:   fmt.Sprintf("Ledger build: %s -> %d items", kind, itemCount),
	})
}

// RequirementEval logs one requirement's evaluated state.
func (a *AuditLogger) RequirementEval(requirementID, state string, met bool) {
	a.Log(AuditEvent{
		EventType: AuditRequirementEval,
		Target:    requirementID,
		Action:    state,
		Success:   met,
		Message:   fmt.Sprintf("Requirement %s: %s", requirementID, state),
	})
}

// LmCall logs an LM adapter invocation.
func (a *AuditLogger) LmCall(attempt int, durationMs int64, success bool, errMsg string) {
	eventType := AuditLmResponse
	if !success {
		eventType = AuditLmError
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Fields:     map[string]interface{}{"attempt": attempt},
		Message:    fmt.Sprintf("LM adapter call attempt=%d success=%v (%dms)", attempt, success, durationMs),
	})
}

// ApplyCycleStart logs the start of an apply cycle.
func (a *AuditLogger) ApplyCycleStart(cycleID string) {
	a.Log(AuditEvent{
		EventType: AuditApplyCycleStart,
		CycleID:   cycleID,
		Success:   true,
		Message:   fmt.Sprintf("Apply cycle started: %s", cycleID),
	})
}

// ApplyCycleEnd logs the end of an apply cycle.
func (a *AuditLogger) ApplyCycleEnd(cycleID string, durationMs int64, success bool) {
	a.Log(AuditEvent{
		EventType:  AuditApplyCycleEnd,
		CycleID:    cycleID,
		Success:    success,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("Apply cycle ended: %s (%dms, success=%v)", cycleID, durationMs, success),
	})
}

// ProgressStalled logs that a cycle made no progress against its unverified count.
func (a *AuditLogger) ProgressStalled(surfaceID string, noProgressCount int) {
	a.Log(AuditEvent{
		EventType: AuditProgressStalled,
		SurfaceID: surfaceID,
		Success:   false,
		Fields:    map[string]interface{}{"no_progress_count": noProgressCount},
		Message:   fmt.Sprintf("No progress on %s (count=%d)", surfaceID, noProgressCount),
	})
}

// ProgressAutoExclude logs an auto-exclusion overlay written after a surface got stuck.
func (a *AuditLogger) ProgressAutoExclude(surfaceID, reasonCode string) {
	a.Log(AuditEvent{
		EventType: AuditProgressAutoExclude,
		SurfaceID: surfaceID,
		Success:   true,
		Fields:    map[string]interface{}{"reason_code": reasonCode},
		Message:   fmt.Sprintf("Auto-excluded %s: %s", surfaceID, reasonCode),
	})
}

// RenderRun logs a man page render pass.
func (a *AuditLogger) RenderRun(binaryName string, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditRenderRun,
		Target:     binaryName,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Render: %s success=%v (%dms)", binaryName, success, durationMs),
	})
}

// StagingOp logs a staging write or publish.
func (a *AuditLogger) StagingOp(published bool, path string, durationMs int64, success bool) {
	eventType := AuditStagingWrite
	if published {
		eventType = AuditStagingPublish
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     path,
		Success:    success,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("Staging %s: %s success=%v (%dms)", eventType, path, success, durationMs),
	})
}

// FileOp logs a file operation.
func (a *AuditLogger) FileOp(op AuditEventType, path string, size int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: op,
		Target:    path,
		Success:   success,
		Error:     errMsg,
		Fields:    map[string]interface{}{"size": size},
		Message:   fmt.Sprintf("File %s: %s (%d bytes, success=%v)", op, path, size, success),
	})
}

// Error logs an error event.
func (a *AuditLogger) Error(category string, err error, critical bool) {
	eventType := AuditErrorGeneric
	if critical {
		eventType = AuditErrorCritical
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Log(AuditEvent{
		EventType: eventType,
		Category:  category,
		Success:   false,
		Error:     errMsg,
		Message:   fmt.Sprintf("Error in %s: %s (critical=%v)", category, errMsg, critical),
	})
}
