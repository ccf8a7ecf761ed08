// Package logging provides config-driven categorized file-based logging for
// the enrichment core. Logs are written to enrich/logs/ with separate files
// per category. Logging is controlled by BMAN_DEBUG=1 in the environment -
// when unset, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot         Category = "boot"         // Process startup, path resolution
	CategoryLock         Category = "lock"         // Lock build/status checks
	CategoryDiscovery    Category = "discovery"    // SurfaceDiscovery lens evaluation
	CategoryScenario     Category = "scenario"     // ScenarioEngine runs and caching
	CategoryLedger       Category = "ledger"       // Coverage/verification ledger builds
	CategoryRequirement  Category = "requirement"  // RequirementEvaluator decisions
	CategoryLmAdapter    Category = "lmadapter"    // LM prompt/invoke/validate/merge
	CategoryApply        Category = "apply"        // ApplyLoop cycle transitions
	CategoryProgress     Category = "progress"     // Failure/no-progress/retry counters
	CategoryRender       Category = "render"       // Man-page render driver
	CategoryStaging      Category = "staging"      // Staging writes and publish
	CategoryInspect      Category = "inspect"      // Doc-pack inspector TUI and its fsnotify watcher
	CategoryEmbedding    Category = "embedding"    // GenAI embedding client
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"` // Output structured JSON for Mangle parsing
}

// StructuredLogEntry represents a JSON log entry for downstream tooling.
// Format: log_entry(Timestamp, Category, Level, Message, File, Line)
type StructuredLogEntry struct {
	Timestamp int64  `json:"ts"`       // Unix milliseconds
	Category  string `json:"cat"`      // Log category
	Level     string `json:"lvl"`      // debug/info/warn/error
	Message   string `json:"msg"`      // Log message
	File      string `json:"file"`     // Source file (optional)
	Line      int    `json:"line"`     // Source line (optional)
	RequestID string `json:"req,omitempty"` // Request correlation ID
	Fields    map[string]interface{} `json:"fields,omitempty"` // Additional structured fields
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	config       loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, "enrich", "logs")

	loadConfig()

	// Only create logs directory if debug mode is enabled
	if !config.DebugMode {
		return nil // Silent no-op in production mode
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Create a boot log entry
	bootLogger := Get(CategoryBoot)
	bootLogger.Info("=== enrichment core logging initialized ===")
	bootLogger.Info("Doc pack: %s", workspace)
	bootLogger.Info("Logs directory: %s", logsDir)
	bootLogger.Info("Debug mode: %v", config.DebugMode)
	bootLogger.Info("Log level: %s", config.Level)

	// Log enabled categories
	if len(config.Categories) > 0 {
		enabledCount := 0
		for cat, enabled := range config.Categories {
			if enabled {
				enabledCount++
			}
			bootLogger.Debug("Category '%s': %v", cat, enabled)
		}
		bootLogger.Info("Enabled categories: %d/%d", enabledCount, len(config.Categories))
	} else {
		bootLogger.Info("All categories enabled (no category filter)")
	}

	return nil
}

// loadConfig derives the logging config from the environment: BMAN_DEBUG
// enables file logging, BMAN_LOG_LEVEL picks the threshold.
func loadConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	config.DebugMode = os.Getenv("BMAN_DEBUG") != ""
	config.Level = os.Getenv("BMAN_LOG_LEVEL")
	configLoaded = true

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
}

// ReloadConfig re-derives the logging config from the environment.
// Call this if BMAN_DEBUG or BMAN_LOG_LEVEL changes at runtime.
func ReloadConfig() {
	loadConfig()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}

	if config.Categories == nil {
		return true // All enabled by default in debug mode
	}

	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		// Return a no-op logger
		return &Logger{category: category}
	}

	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	// Create new logger
	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	// Create log file with date prefix for easy rotation
	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Fall back to no-op logger
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l

	return l
}

// logJSON writes a structured JSON log entry
func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg) // Fallback to text
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a fully structured log entry with custom fields
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	if config.JSONFormat {
		data, err := json.Marshal(entry)
		if err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	// Fallback to text format with fields
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// IsJSONFormat returns whether JSON logging is enabled
func IsJSONFormat() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.JSONFormat
}

// WithContext returns a context logger for structured logging
func (l *Logger) WithContext(ctx map[string]interface{}) *ContextLogger {
	return &ContextLogger{logger: l, context: ctx}
}

// ContextLogger provides structured logging with key-value context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

func (c *ContextLogger) Debug(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[DEBUG] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Info(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[INFO] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Warn(format string, args ...interface{}) {
	if c.logger.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[WARN] %s | ctx=%v", msg, c.context)
}

func (c *ContextLogger) Error(format string, args ...interface{}) {
	if c.logger.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.logger.Printf("[ERROR] %s | ctx=%v", msg, c.context)
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

// BootWarn logs warning to the boot category
func BootWarn(format string, args ...interface{}) { Get(CategoryBoot).Warn(format, args...) }

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// Lock logs to the lock category
func Lock(format string, args ...interface{}) { Get(CategoryLock).Info(format, args...) }

// LockDebug logs debug to the lock category
func LockDebug(format string, args ...interface{}) { Get(CategoryLock).Debug(format, args...) }

// LockWarn logs warning to the lock category
func LockWarn(format string, args ...interface{}) { Get(CategoryLock).Warn(format, args...) }

// LockError logs error to the lock category
func LockError(format string, args ...interface{}) { Get(CategoryLock).Error(format, args...) }

// Discovery logs to the discovery category
func Discovery(format string, args ...interface{}) { Get(CategoryDiscovery).Info(format, args...) }

// DiscoveryDebug logs debug to the discovery category
func DiscoveryDebug(format string, args ...interface{}) { Get(CategoryDiscovery).Debug(format, args...) }

// DiscoveryWarn logs warning to the discovery category
func DiscoveryWarn(format string, args ...interface{}) { Get(CategoryDiscovery).Warn(format, args...) }

// DiscoveryError logs error to the discovery category
func DiscoveryError(format string, args ...interface{}) { Get(CategoryDiscovery).Error(format, args...) }

// Scenario logs to the scenario category
func Scenario(format string, args ...interface{}) { Get(CategoryScenario).Info(format, args...) }

// ScenarioDebug logs debug to the scenario category
func ScenarioDebug(format string, args ...interface{}) { Get(CategoryScenario).Debug(format, args...) }

// ScenarioWarn logs warning to the scenario category
func ScenarioWarn(format string, args ...interface{}) { Get(CategoryScenario).Warn(format, args...) }

// ScenarioError logs error to the scenario category
func ScenarioError(format string, args ...interface{}) { Get(CategoryScenario).Error(format, args...) }

// Ledger logs to the ledger category
func Ledger(format string, args ...interface{}) { Get(CategoryLedger).Info(format, args...) }

// LedgerDebug logs debug to the ledger category
func LedgerDebug(format string, args ...interface{}) { Get(CategoryLedger).Debug(format, args...) }

// LedgerWarn logs warning to the ledger category
func LedgerWarn(format string, args ...interface{}) { Get(CategoryLedger).Warn(format, args...) }

// LedgerError logs error to the ledger category
func LedgerError(format string, args ...interface{}) { Get(CategoryLedger).Error(format, args...) }

// Requirement logs to the requirement category
func Requirement(format string, args ...interface{}) { Get(CategoryRequirement).Info(format, args...) }

// RequirementDebug logs debug to the requirement category
func RequirementDebug(format string, args ...interface{}) { Get(CategoryRequirement).Debug(format, args...) }

// RequirementWarn logs warning to the requirement category
func RequirementWarn(format string, args ...interface{}) { Get(CategoryRequirement).Warn(format, args...) }

// RequirementError logs error to the requirement category
func RequirementError(format string, args ...interface{}) { Get(CategoryRequirement).Error(format, args...) }

// LmAdapter logs to the lmadapter category
func LmAdapter(format string, args ...interface{}) { Get(CategoryLmAdapter).Info(format, args...) }

// LmAdapterDebug logs debug to the lmadapter category
func LmAdapterDebug(format string, args ...interface{}) { Get(CategoryLmAdapter).Debug(format, args...) }

// LmAdapterWarn logs warning to the lmadapter category
func LmAdapterWarn(format string, args ...interface{}) { Get(CategoryLmAdapter).Warn(format, args...) }

// LmAdapterError logs error to the lmadapter category
func LmAdapterError(format string, args ...interface{}) { Get(CategoryLmAdapter).Error(format, args...) }

// Apply logs to the apply category
func Apply(format string, args ...interface{}) { Get(CategoryApply).Info(format, args...) }

// ApplyDebug logs debug to the apply category
func ApplyDebug(format string, args ...interface{}) { Get(CategoryApply).Debug(format, args...) }

// ApplyWarn logs warning to the apply category
func ApplyWarn(format string, args ...interface{}) { Get(CategoryApply).Warn(format, args...) }

// ApplyError logs error to the apply category
func ApplyError(format string, args ...interface{}) { Get(CategoryApply).Error(format, args...) }

// Progress logs to the progress category
func Progress(format string, args ...interface{}) { Get(CategoryProgress).Info(format, args...) }

// ProgressDebug logs debug to the progress category
func ProgressDebug(format string, args ...interface{}) { Get(CategoryProgress).Debug(format, args...) }

// ProgressWarn logs warning to the progress category
func ProgressWarn(format string, args ...interface{}) { Get(CategoryProgress).Warn(format, args...) }

// ProgressError logs error to the progress category
func ProgressError(format string, args ...interface{}) { Get(CategoryProgress).Error(format, args...) }

// Render logs to the render category
func Render(format string, args ...interface{}) { Get(CategoryRender).Info(format, args...) }

// RenderDebug logs debug to the render category
func RenderDebug(format string, args ...interface{}) { Get(CategoryRender).Debug(format, args...) }

// RenderWarn logs warning to the render category
func RenderWarn(format string, args ...interface{}) { Get(CategoryRender).Warn(format, args...) }

// RenderError logs error to the render category
func RenderError(format string, args ...interface{}) { Get(CategoryRender).Error(format, args...) }

// Staging logs to the staging category
func Staging(format string, args ...interface{}) { Get(CategoryStaging).Info(format, args...) }

// StagingDebug logs debug to the staging category
func StagingDebug(format string, args ...interface{}) { Get(CategoryStaging).Debug(format, args...) }

// StagingWarn logs warning to the staging category
func StagingWarn(format string, args ...interface{}) { Get(CategoryStaging).Warn(format, args...) }

// StagingError logs error to the staging category
func StagingError(format string, args ...interface{}) { Get(CategoryStaging).Error(format, args...) }

// Inspect logs to the inspect category
func Inspect(format string, args ...interface{}) { Get(CategoryInspect).Info(format, args...) }

// InspectDebug logs debug to the inspect category
func InspectDebug(format string, args ...interface{}) { Get(CategoryInspect).Debug(format, args...) }

// InspectWarn logs warning to the inspect category
func InspectWarn(format string, args ...interface{}) { Get(CategoryInspect).Warn(format, args...) }

// InspectError logs error to the inspect category
func InspectError(format string, args ...interface{}) { Get(CategoryInspect).Error(format, args...) }

// Embedding logs to the embedding category
func Embedding(format string, args ...interface{}) { Get(CategoryEmbedding).Info(format, args...) }

// EmbeddingDebug logs debug to the embedding category
func EmbeddingDebug(format string, args ...interface{}) { Get(CategoryEmbedding).Debug(format, args...) }

// =============================================================================
// REQUEST ID TRACING - For distributed request tracing
// =============================================================================

// RequestLogger provides request-scoped logging with a correlation ID
type RequestLogger struct {
	logger    *Logger
	requestID string
	fields    map[string]interface{}
}

// WithRequestID creates a request-scoped logger for distributed tracing
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		logger:    Get(category),
		requestID: requestID,
		fields:    make(map[string]interface{}),
	}
}

// WithField adds a field to the request logger
func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	r.fields[key] = value
	return r
}

func (r *RequestLogger) formatMsg(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if len(r.fields) > 0 {
		return fmt.Sprintf("[req:%s] %s | %v", r.requestID, msg, r.fields)
	}
	return fmt.Sprintf("[req:%s] %s", r.requestID, msg)
}

func (r *RequestLogger) Debug(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelDebug {
		return
	}
	r.logger.logger.Printf("[DEBUG] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Info(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	r.logger.logger.Printf("[INFO] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Warn(format string, args ...interface{}) {
	if r.logger.logger == nil || logLevel > LevelWarn {
		return
	}
	r.logger.logger.Printf("[WARN] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Error(format string, args ...interface{}) {
	if r.logger.logger == nil {
		return
	}
	r.logger.logger.Printf("[ERROR] %s", r.formatMsg(format, args...))
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
