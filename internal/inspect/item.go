package inspect

import "github.com/charmbracelet/bubbles/list"

// artifactItem adapts an Artifact to bubbles/list.Item, grounded on the
// teacher's patternItem in cmd/nerd/ui/autopoiesis_page.go.
type artifactItem struct {
	artifact Artifact
}

var _ list.Item = artifactItem{}

func (i artifactItem) Title() string {
	if !i.artifact.Exists {
		return i.artifact.Label + " (not yet produced)"
	}
	return i.artifact.Label
}

func (i artifactItem) Description() string {
	if i.artifact.Err != nil {
		return "error: " + i.artifact.Err.Error()
	}
	if !i.artifact.Exists {
		return "run bman plan/apply to produce this file"
	}
	return i.artifact.Path
}

func (i artifactItem) FilterValue() string { return i.artifact.Label }

func toItems(artifacts []Artifact) []list.Item {
	items := make([]list.Item, len(artifacts))
	for idx, a := range artifacts {
		items[idx] = artifactItem{artifact: a}
	}
	return items
}
