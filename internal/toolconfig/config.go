// Package toolconfig holds operator-level settings that are never part of a
// doc pack and never content-hashed into a lock: default external-process
// commands, sandbox defaults, and CLI presentation. Pack-owned artifacts
// (EnrichConfig, ScenarioPlan, overlays, ...) stay JSON per spec §3; this is
// the YAML settings file above them, grounded on the teacher's
// internal/config (Config/DefaultConfig/Load/Save/applyEnvOverrides).
package toolconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"bman/internal/logging"
)

// Config holds every operator-level setting bman reads at process start.
type Config struct {
	// Name/Version identify the tool in diagnostics and --version output.
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LM         LmConfig         `yaml:"lm"`
	FactPack   FactPackConfig   `yaml:"fact_pack"`
	Runner     RunnerConfig     `yaml:"runner"`
	Renderer   RendererConfig   `yaml:"renderer"`
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	CLI        CLIConfig        `yaml:"cli"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LmConfig configures the external LM command contract (spec §6): a shell
// command reading a prompt on stdin (or via a {prompt} sentinel) and
// writing a response blob on stdout.
type LmConfig struct {
	// Command is split with shell-word rules before exec. Empty means use
	// the built-in default: the companion bman-lm-genai binary.
	Command string `yaml:"command"`
	// MaxAttempts bounds the retry loop on parse/validation failure.
	MaxAttempts int `yaml:"max_attempts"`
	// Timeout bounds each LM subprocess call; every retry attempt gets the
	// full timeout again.
	Timeout string `yaml:"timeout"`
	// PersistTranscripts writes the full prompt/response under
	// enrich/lm_log/cycle_NNN_<kind>_{prompt,response}.txt.
	PersistTranscripts bool `yaml:"persist_transcripts"`
}

// FactPackConfig configures the external binary-analysis tool invoked by
// --refresh-pack to (re)generate the Parquet fact pack and the SQL query
// engine used to materialize surface items from it.
type FactPackConfig struct {
	// GeneratorCommand produces binary.lens/manifest.json and the parquet
	// fact tables for a target binary.
	GeneratorCommand string `yaml:"generator_command"`
	// QueryEngineCommand is invoked with a JSON-output flag and a rendered
	// query string; stdin unused, cwd is the facts directory.
	QueryEngineCommand string `yaml:"query_engine_command"`
	QueryTimeout       string `yaml:"query_timeout"`
}

// RunnerConfig configures the external scenario runner: receives the
// binary, argv, env map, seed dir, cwd, and resource limits as a key-value
// argv, writes a manifest under binary.lens/runs/<run_id>/.
type RunnerConfig struct {
	Command        string `yaml:"command"`
	DefaultTimeout string `yaml:"default_timeout"`
}

// RendererConfig configures the operator-supplied roff renderer. Empty
// Command means the built-in fallback writer emits a minimal roff page, so
// the module runs without an external troff installed.
type RendererConfig struct {
	Command string `yaml:"command"`
	Timeout string `yaml:"timeout"`
}

// SandboxConfig carries the default resource/process limits applied to
// scenario runs unless a ScenarioSpec overrides them.
type SandboxConfig struct {
	DefaultNetMode    string `yaml:"default_net_mode"` // "off" or "inherit"
	DefaultNoSandbox  bool   `yaml:"default_no_sandbox"`
	DefaultNoStrace   bool   `yaml:"default_no_strace"`
	AllowedEnvVars    []string `yaml:"allowed_env_vars"`
}

// CLIConfig configures operator-CLI presentation, consumed by cmd/bman.
type CLIConfig struct {
	Color   string `yaml:"color"` // "auto", "always", "never"
	Verbose bool   `yaml:"verbose"`
}

// LoggingConfig mirrors the relevant bits of internal/logging's
// environment-driven config, so an operator can pin them in a file instead
// of exporting BMAN_DEBUG/BMAN_LOG_LEVEL.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"`
}

// DefaultConfig returns bman's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "bman",
		Version: "0.1.0",

		LM: LmConfig{
			Command:            "bman-lm-genai",
			MaxAttempts:        3,
			Timeout:            "120s",
			PersistTranscripts: false,
		},

		FactPack: FactPackConfig{
			GeneratorCommand:   "",
			QueryEngineCommand: "",
			QueryTimeout:       "30s",
		},

		Runner: RunnerConfig{
			Command:        "",
			DefaultTimeout: "30s",
		},

		Renderer: RendererConfig{
			Command: "",
			Timeout: "30s",
		},

		Sandbox: SandboxConfig{
			DefaultNetMode:   "off",
			DefaultNoSandbox: false,
			DefaultNoStrace:  false,
			AllowedEnvVars:   []string{"PATH", "HOME"},
		},

		CLI: CLIConfig{
			Color:   "auto",
			Verbose: false,
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults (plus
// environment overrides) when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("Loading tool config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("Tool config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("Failed to read tool config %s: %v", path, err)
		return nil, fmt.Errorf("read tool config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("Failed to parse tool config %s: %v", path, err)
		return nil, fmt.Errorf("parse tool config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("Tool config loaded: lm_command=%s", cfg.LM.Command)
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tool config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal tool config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tool config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies the environment overrides: BMAN_LM_COMMAND
// overrides the LM command, BMAN_DEBUG enables debug logging, and
// BMAN_LOG_LEVEL sets the log level. BMAN_MOCK_STATE_DIR is not read here;
// only MockStateDir reads it, for integration tests.
func (c *Config) applyEnvOverrides() {
	if cmd := os.Getenv("BMAN_LM_COMMAND"); cmd != "" {
		c.LM.Command = cmd
	}
	if os.Getenv("BMAN_DEBUG") != "" {
		c.Logging.DebugMode = true
	}
	if level := os.Getenv("BMAN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// MockStateDir returns BMAN_MOCK_STATE_DIR, honored only by integration
// tests that need a deterministic scratch directory for a stubbed external
// process.
func MockStateDir() (string, bool) {
	dir := os.Getenv("BMAN_MOCK_STATE_DIR")
	return dir, dir != ""
}

// LmTimeout returns Timeout parsed, defaulting to 120s on a bad value.
func (c LmConfig) LmTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// LmTimeout returns LM.Timeout parsed, defaulting to 120s on a bad value.
func (c *Config) LmTimeout() time.Duration {
	return c.LM.LmTimeout()
}

// QueryTimeout returns FactPack.QueryTimeout parsed, defaulting to 30s.
func (c *Config) QueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.FactPack.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// RunnerTimeout returns Runner.DefaultTimeout parsed, defaulting to 30s.
func (c *Config) RunnerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Runner.DefaultTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// RendererTimeout returns Renderer.Timeout parsed, defaulting to 30s.
func (c *Config) RendererTimeout() time.Duration {
	d, err := time.ParseDuration(c.Renderer.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// EffectiveLmCommand returns the LM command to exec, falling back to the
// companion bman-lm-genai binary when unset.
func (c *Config) EffectiveLmCommand() string {
	if c.LM.Command != "" {
		return c.LM.Command
	}
	return "bman-lm-genai"
}
