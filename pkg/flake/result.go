package flake

import "strings"

// TestOutcome is the terminal status of a single check.
type TestOutcome string

const (
	Passed  TestOutcome = "PASSED"
	Failed  TestOutcome = "FAILED"
	Skipped TestOutcome = "SKIPPED"
)

// Check names, stable identifiers consumed by renderers and stored runs.
const (
	GithubURLCheck = "github_url_check"
	SandboxCreate  = "sandbox_create"
	FlakeCheck     = "flake_check"
	OutputsCheck   = "outputs_check"
	SandboxTests   = "sandbox_tests"
)

// OutputCounts holds the per-category flake output counts for the
// target system, as reported by `nix flake show --json`.
type OutputCounts struct {
	Packages  int `json:"packages"`
	Checks    int `json:"checks"`
	DevShells int `json:"devShells"`
	Apps      int `json:"apps"`
}

// Details carries structured diagnostics for a single check. Fields
// are populated per check kind; zero values are omitted from JSON.
type Details struct {
	Error      string        `json:"error,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	ReturnCode int           `json:"return_code,omitempty"`
	Stdout     string        `json:"stdout,omitempty"`
	RawOutput  string        `json:"raw_output,omitempty"`
	FoundURLs  []string      `json:"found_urls,omitempty"`
	Outputs    *OutputCounts `json:"outputs,omitempty"`
}

// TestResult is the immutable outcome of a single check. Status is
// assigned exactly once at construction.
type TestResult struct {
	Name    string      `json:"name"`
	Status  TestOutcome `json:"status"`
	Message string      `json:"message"`
	Details *Details    `json:"details,omitempty"`
}

// Tolerated classifies a failure as a known artifact of the local-path
// substitution technique rather than a broken template. Classified
// failures carry a suggestion naming the substitution.
func (t TestResult) Tolerated() bool {
	if t.Details == nil {
		return false
	}
	s := t.Details.Suggestion
	return strings.Contains(s, "local path replacement") || strings.Contains(s, "local path issue")
}

// Critical reports whether this result should fail the template
// overall: a failure not attributable to local-path substitution.
func (t TestResult) Critical() bool {
	return t.Status == Failed && !t.Tolerated()
}

// TemplateValidationResult is the full outcome for one template.
// Tests are in execution order. ErrorMessage is set only when
// validation could not proceed at all (e.g. missing directory).
type TemplateValidationResult struct {
	TemplateName  string       `json:"template_name"`
	OverallStatus TestOutcome  `json:"overall_status"`
	Tests         []TestResult `json:"tests"`
	ErrorMessage  string       `json:"error_message,omitempty"`
}

// Aggregate applies the pass/fail policy: a template passes iff no
// recorded check is a critical failure. Tolerated substitution
// artifacts may fail individually without failing the template.
func Aggregate(tests []TestResult) TestOutcome {
	for _, t := range tests {
		if t.Critical() {
			return Failed
		}
	}
	return Passed
}

// Summarize counts passing templates against the total. Entries that
// never ran (error sentinel, missing directories) are excluded from
// the denominator.
func Summarize(results map[string]*TemplateValidationResult) (passed, total int) {
	for name, r := range results {
		if name == ErrorKey || r.ErrorMessage != "" {
			continue
		}
		total++
		if r.OverallStatus == Passed {
			passed++
		}
	}
	return passed, total
}
