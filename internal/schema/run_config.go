package schema

// ScenarioRunConfig is the effective, fully-merged configuration for one
// scenario run, plus its content-addressed scenario_digest.
type ScenarioRunConfig struct {
	Argv            []string          `json:"argv"`
	Env             map[string]string `json:"env"`
	Seed            *ScenarioSeedSpec `json:"seed,omitempty"`
	SeedDir         string            `json:"seed_dir,omitempty"`
	Cwd             string            `json:"cwd,omitempty"`
	TimeoutSeconds  float64           `json:"timeout_seconds"`
	NetMode         NetMode           `json:"net_mode"`
	NoSandbox       bool              `json:"no_sandbox"`
	NoStrace        bool              `json:"no_strace"`
	SnippetMaxLines int               `json:"snippet_max_lines"`
	SnippetMaxBytes int               `json:"snippet_max_bytes"`
	Expect          ScenarioExpect    `json:"expect"`
	ScenarioDigest  string            `json:"scenario_digest"`
}
