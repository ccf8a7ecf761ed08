package scenarioengine

import (
	"regexp"
	"strings"

	"bman/internal/schema"
)

// EvaluateExpect applies expect's predicates to one run's captured
// exit/signal/stdout/stderr, deterministically: exit code must match if
// set; exit_signal same; each *_contains_all entry must appear;
// *_contains_any must have at least one match when non-empty; regex
// variants compile once and apply to the full stream.
func EvaluateExpect(expect schema.ScenarioExpect, exitCode, exitSignal *int, stdout, stderr string) (bool, []string) {
	var failures []string

	if expect.ExitCode != nil {
		if exitCode == nil || *exitCode != *expect.ExitCode {
			failures = append(failures, "exit_code mismatch")
		}
	}
	if expect.ExitSignal != nil {
		if exitSignal == nil || *exitSignal != *expect.ExitSignal {
			failures = append(failures, "exit_signal mismatch")
		}
	}

	checkContainsAll(stdout, expect.StdoutContainsAll, "stdout_contains_all", &failures)
	checkContainsAny(stdout, expect.StdoutContainsAny, "stdout_contains_any", &failures)
	checkContainsAll(stderr, expect.StderrContainsAll, "stderr_contains_all", &failures)
	checkContainsAny(stderr, expect.StderrContainsAny, "stderr_contains_any", &failures)

	checkRegexAll(stdout, expect.StdoutRegexAll, "stdout_regex_all", &failures)
	checkRegexAny(stdout, expect.StdoutRegexAny, "stdout_regex_any", &failures)
	checkRegexAll(stderr, expect.StderrRegexAll, "stderr_regex_all", &failures)
	checkRegexAny(stderr, expect.StderrRegexAny, "stderr_regex_any", &failures)

	return len(failures) == 0, failures
}

func checkContainsAll(stream string, needles []string, label string, failures *[]string) {
	for _, needle := range needles {
		if !strings.Contains(stream, needle) {
			*failures = append(*failures, label+": missing "+quote(needle))
		}
	}
}

func checkContainsAny(stream string, needles []string, label string, failures *[]string) {
	if len(needles) == 0 {
		return
	}
	for _, needle := range needles {
		if strings.Contains(stream, needle) {
			return
		}
	}
	*failures = append(*failures, label+": none matched")
}

func checkRegexAll(stream string, patterns []string, label string, failures *[]string) {
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			*failures = append(*failures, label+": invalid regex "+quote(pattern))
			continue
		}
		if !re.MatchString(stream) {
			*failures = append(*failures, label+": no match for "+quote(pattern))
		}
	}
}

func checkRegexAny(stream string, patterns []string, label string, failures *[]string) {
	if len(patterns) == 0 {
		return
	}
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(stream) {
			return
		}
	}
	*failures = append(*failures, label+": none matched")
}

func quote(s string) string {
	return "\"" + s + "\""
}
