package toolconfig

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "bman" {
		t.Errorf("expected Name=bman, got %s", cfg.Name)
	}
	if cfg.LM.Command != "bman-lm-genai" {
		t.Errorf("expected LM.Command=bman-lm-genai, got %s", cfg.LM.Command)
	}
	if cfg.LM.MaxAttempts != 3 {
		t.Errorf("expected LM.MaxAttempts=3, got %d", cfg.LM.MaxAttempts)
	}
	if cfg.Renderer.Command != "" {
		t.Errorf("expected Renderer.Command empty (built-in fallback renderer), got %s", cfg.Renderer.Command)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("BMAN_LM_COMMAND", "")
	t.Setenv("BMAN_DEBUG", "")
	t.Setenv("BMAN_LOG_LEVEL", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bman.yaml")

	cfg := DefaultConfig()
	cfg.LM.Command = "custom-lm --flag"
	cfg.Sandbox.DefaultNetMode = "inherit"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LM.Command != "custom-lm --flag" {
		t.Errorf("expected LM.Command=%q, got %q", "custom-lm --flag", loaded.LM.Command)
	}
	if loaded.Sandbox.DefaultNetMode != "inherit" {
		t.Errorf("expected Sandbox.DefaultNetMode=inherit, got %s", loaded.Sandbox.DefaultNetMode)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BMAN_LM_COMMAND", "")
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "does-not-exist.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of missing file should not error, got: %v", err)
	}
	if cfg.LM.Command != "bman-lm-genai" {
		t.Errorf("expected default LM.Command, got %s", cfg.LM.Command)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BMAN_LM_COMMAND", "env-lm-cmd")
	t.Setenv("BMAN_DEBUG", "1")
	t.Setenv("BMAN_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.LM.Command != "env-lm-cmd" {
		t.Errorf("expected LM.Command=env-lm-cmd, got %s", cfg.LM.Command)
	}
	if !cfg.Logging.DebugMode {
		t.Error("expected Logging.DebugMode=true from BMAN_DEBUG")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level=debug, got %s", cfg.Logging.Level)
	}
}

func TestMockStateDir(t *testing.T) {
	t.Setenv("BMAN_MOCK_STATE_DIR", "")
	if _, ok := MockStateDir(); ok {
		t.Error("expected MockStateDir to report unset when env var empty")
	}

	t.Setenv("BMAN_MOCK_STATE_DIR", "/tmp/mock")
	dir, ok := MockStateDir()
	if !ok || dir != "/tmp/mock" {
		t.Errorf("expected MockStateDir=/tmp/mock, got %q (ok=%v)", dir, ok)
	}
}

func TestEffectiveLmCommand(t *testing.T) {
	cfg := &Config{}
	if got := cfg.EffectiveLmCommand(); got != "bman-lm-genai" {
		t.Errorf("expected fallback bman-lm-genai, got %s", got)
	}
	cfg.LM.Command = "other-binary"
	if got := cfg.EffectiveLmCommand(); got != "other-binary" {
		t.Errorf("expected other-binary, got %s", got)
	}
}
