package lmadapter

import (
	"strings"

	"bman/internal/schema"
)

// commonOctalLookingModes maps decimal-looking mode integers an LM
// typically intends as octal permission bits to their actual octal value,
// per spec §4.7 ("translate common decimal-looking mode integers").
var commonOctalLookingModes = map[uint32]uint32{
	644: 0o644,
	755: 0o755,
	777: 0o777,
	666: 0o666,
	600: 0o600,
	700: 0o700,
	444: 0o444,
	555: 0o555,
}

// SanitizeBatch fixes common LM mistakes in-place before validation: strips
// a leading binary-name argv element, drops invalid/duplicate seed paths,
// and corrects decimal-looking modes.
func SanitizeBatch(batch *schema.LmResponseBatch, binaryName string) {
	for i := range batch.Responses {
		action, ok := batch.Responses[i].Action.(schema.AddScenarioAction)
		if !ok {
			continue
		}
		sanitizeScenario(&action.Scenario, binaryName)
		batch.Responses[i].Action = action
	}
}

func sanitizeScenario(s *schema.ScenarioSpec, binaryName string) {
	if len(s.Argv) > 0 && s.Argv[0] == binaryName {
		s.Argv = s.Argv[1:]
	}
	if s.Seed != nil {
		sanitizeSeed(s.Seed)
	}
}

func sanitizeSeed(seed *schema.ScenarioSeedSpec) {
	seen := make(map[string]bool, len(seed.Entries))
	out := seed.Entries[:0]
	for _, entry := range seed.Entries {
		path := strings.TrimSpace(entry.Path)
		if path == "" || path == "." || path == ".." || strings.HasPrefix(path, "../") {
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true

		if entry.Mode != nil {
			mode := *entry.Mode
			if fixed, ok := commonOctalLookingModes[mode]; ok {
				mode = fixed
			} else if mode > 0o777 {
				mode = 0o755
			}
			entry.Mode = &mode
		}
		out = append(out, entry)
	}
	seed.Entries = out
}
