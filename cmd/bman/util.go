package main

import (
	"encoding/json"
	"fmt"
	"os"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

func marshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// loadEnrichConfig reads and validates enrich/config.json. Several
// subcommands (plan, status) need the config to rebuild a lock without
// running a full apply cycle.
func loadEnrichConfig(paths pathmodel.Paths) (*schema.EnrichConfig, error) {
	raw, err := os.ReadFile(paths.Config())
	if err != nil {
		return nil, fmt.Errorf("read enrich config: %w", err)
	}
	cfg := &schema.EnrichConfig{}
	if err := schema.DecodeStrict(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode enrich config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enrich config: %w", err)
	}
	return cfg, nil
}
