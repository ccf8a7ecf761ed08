package schema

// RenderMeta is the render summary written to man/meta.json alongside the
// rendered man page: which sections were emitted and the inputs_hash the
// page was rendered against, so the ManPage requirement can detect
// staleness without re-rendering.
type RenderMeta struct {
	SchemaVersion    int      `json:"schema_version"`
	InputsHash       string   `json:"inputs_hash,omitempty"`
	BinaryName       string   `json:"binary_name,omitempty"`
	Sections         []string `json:"sections,omitempty"`
	GeneratedAtEpochMs int64  `json:"generated_at_epoch_ms"`
}
