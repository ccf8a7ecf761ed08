package schema

// PrereqDefinition describes one named prerequisite fixture/condition a
// surface item's behavior scenario may need.
type PrereqDefinition struct {
	Description string   `json:"description,omitempty"`
	Seed        *ScenarioSeedSpec `json:"seed,omitempty"`
	Exclude     bool     `json:"exclude"`
}

// PrereqsFile is the pack-owned map of prerequisite definitions and which
// surface ids reference them. Garbage-collected against SurfaceMap on every
// write.
type PrereqsFile struct {
	Definitions map[string]PrereqDefinition `json:"definitions"`
	SurfaceMap  map[string][]string         `json:"surface_map"`
}

// GC drops definitions no longer referenced by any surface id in SurfaceMap.
func (p *PrereqsFile) GC() {
	referenced := make(map[string]bool)
	for _, keys := range p.SurfaceMap {
		for _, k := range keys {
			referenced[k] = true
		}
	}
	for k := range p.Definitions {
		if !referenced[k] {
			delete(p.Definitions, k)
		}
	}
}
