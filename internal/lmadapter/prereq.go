package lmadapter

import (
	"bman/internal/schema"
)

// prereqResponse is the LM's raw reply to a prereq-inference prompt: new
// definitions plus which surface ids should reference them.
type prereqResponse struct {
	Definitions map[string]schema.PrereqDefinition `json:"definitions"`
	SurfaceMap  map[string][]string                `json:"surface_map"`
}

// ParsePrereqResponse extracts and decodes an LM's prereq-inference reply,
// reusing the same fence/envelope-tolerant extraction as behavior
// responses.
func ParsePrereqResponse(text string) (map[string]schema.PrereqDefinition, map[string][]string, error) {
	jsonText := ExtractJSON(text)
	var resp prereqResponse
	if err := schema.DecodeStrict([]byte(jsonText), &resp); err != nil {
		return nil, nil, err
	}
	return resp.Definitions, resp.SurfaceMap, nil
}

// MergePrereqResponse upserts resp's definitions into file and appends
// resp's surface_map keys to the referencing surface ids, then garbage
// collects any definition left unreferenced.
func MergePrereqResponse(file *schema.PrereqsFile, text string) error {
	jsonText := ExtractJSON(text)
	var resp prereqResponse
	if err := schema.DecodeStrict([]byte(jsonText), &resp); err != nil {
		return err
	}

	if file.Definitions == nil {
		file.Definitions = map[string]schema.PrereqDefinition{}
	}
	if file.SurfaceMap == nil {
		file.SurfaceMap = map[string][]string{}
	}

	for key, def := range resp.Definitions {
		file.Definitions[key] = def
	}
	for surfaceID, keys := range resp.SurfaceMap {
		file.SurfaceMap[surfaceID] = unionAppend(file.SurfaceMap[surfaceID], keys)
	}

	file.GC()
	return nil
}
