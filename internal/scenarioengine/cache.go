package scenarioengine

import "bman/internal/schema"

// RunMode selects the cache policy applied to every scenario in a run.
type RunMode string

const (
	RunModeDefault     RunMode = "default"
	RunModeRerunAll    RunMode = "rerun_all"
	RunModeRerunFailed RunMode = "rerun_failed"
)

// ShouldRunScenario decides whether a scenario needs to execute this cycle,
// per §4.2.1's cache policy.
func ShouldRunScenario(mode RunMode, scenarioDigest string, entry *schema.ScenarioIndexEntry, hasPriorOutcome bool) bool {
	switch mode {
	case RunModeRerunAll:
		return true
	case RunModeRerunFailed:
		return !(entry != nil && entry.LastPass != nil && *entry.LastPass)
	default: // RunModeDefault
		if !hasPriorOutcome {
			return true
		}
		if entry == nil {
			return true
		}
		if entry.LastPass == nil || !*entry.LastPass {
			return true
		}
		if entry.ScenarioDigest != scenarioDigest {
			return true
		}
		return false
	}
}
