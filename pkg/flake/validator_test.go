package flake

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luochen1990/fhsval/pkg/runner"
	"github.com/luochen1990/fhsval/pkg/security"
)

func makeTemplatesRoot(t *testing.T, templates map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, manifest := range templates {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		if manifest != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0644))
		}
	}
	return root
}

func newValidator(t *testing.T, root string, stub *stubRunner) *Validator {
	t.Helper()
	return NewValidator(root, t.TempDir(), NewEvaluator(stub, "nix", "x86_64-linux"))
}

func testNames(tests []TestResult) []string {
	names := make([]string, len(tests))
	for i, tt := range tests {
		names[i] = tt.Name
	}
	return names
}

func TestValidateTemplateAllPassing(t *testing.T) {
	root := makeTemplatesRoot(t, map[string]string{"demo": sampleManifest})
	stub := newStub()
	stub.results["check"] = &runner.Result{ExitCode: 0}
	stub.results["show"] = &runner.Result{ExitCode: 0, Stdout: showJSON}

	result := newValidator(t, root, stub).ValidateTemplate(context.Background(), "demo")

	assert.Equal(t, Passed, result.OverallStatus)
	assert.Equal(t, []string{GithubURLCheck, SandboxCreate, FlakeCheck, OutputsCheck}, testNames(result.Tests))
	for _, test := range result.Tests {
		assert.Equal(t, Passed, test.Status, test.Name)
	}
	assert.Empty(t, result.ErrorMessage)
}

func TestValidateTemplateToleratedCheckZeroPackages(t *testing.T) {
	root := makeTemplatesRoot(t, map[string]string{"demo": sampleManifest})
	stub := newStub()
	stub.results["check"] = &runner.Result{ExitCode: 1, Stderr: "attribute 'mkFlake' missing"}
	stub.results["show"] = &runner.Result{ExitCode: 0, Stdout: `{"packages": {}}`}

	result := newValidator(t, root, stub).ValidateTemplate(context.Background(), "demo")

	// The tolerated check failure lets the outputs check run; zero
	// packages is a critical failure, so the template fails overall.
	require.Len(t, result.Tests, 4)
	check := result.Tests[2]
	assert.Equal(t, Failed, check.Status)
	assert.True(t, check.Tolerated())
	outputs := result.Tests[3]
	assert.Equal(t, Failed, outputs.Status)
	assert.True(t, outputs.Critical())
	assert.Equal(t, Failed, result.OverallStatus)
}

func TestValidateTemplateToleratedFailuresStillPass(t *testing.T) {
	root := makeTemplatesRoot(t, map[string]string{"demo": sampleManifest})
	stub := newStub()
	stub.results["check"] = &runner.Result{ExitCode: 1, Stderr: "found circular import of flake 'path:/work'"}
	stub.results["show"] = &runner.Result{ExitCode: 0, Stdout: showJSON}

	result := newValidator(t, root, stub).ValidateTemplate(context.Background(), "demo")

	// One failed sub-result, but it is a substitution artifact, so
	// the aggregate still passes.
	assert.Equal(t, Failed, result.Tests[2].Status)
	assert.Equal(t, Passed, result.OverallStatus)
}

func TestValidateTemplateUnmatchedFailureSkipsOutputs(t *testing.T) {
	root := makeTemplatesRoot(t, map[string]string{"demo": sampleManifest})
	stub := newStub()
	stub.results["check"] = &runner.Result{ExitCode: 1, Stderr: "error: syntax error near ';'"}

	result := newValidator(t, root, stub).ValidateTemplate(context.Background(), "demo")

	require.Len(t, result.Tests, 4)
	assert.Equal(t, Failed, result.Tests[2].Status)
	assert.Equal(t, Skipped, result.Tests[3].Status)
	assert.Equal(t, Failed, result.OverallStatus)
	assert.Equal(t, []string{"check"}, stub.calls)
}

func TestValidateTemplateWrongURL(t *testing.T) {
	// Template referencing a local path instead of the canonical
	// source: the URL check fails (critical) even though the sandbox
	// checks themselves all pass.
	manifest := `inputs.flake-fhs.url = "path:/home/dev/flake-fhs";`
	root := makeTemplatesRoot(t, map[string]string{"demo": manifest})
	stub := newStub()
	stub.results["check"] = &runner.Result{ExitCode: 0}
	stub.results["show"] = &runner.Result{ExitCode: 0, Stdout: showJSON}

	result := newValidator(t, root, stub).ValidateTemplate(context.Background(), "demo")

	urlCheck := result.Tests[0]
	assert.Equal(t, Failed, urlCheck.Status)
	require.NotNil(t, urlCheck.Details)
	assert.Equal(t, []string{"path:/home/dev/flake-fhs"}, urlCheck.Details.FoundURLs)
	assert.True(t, urlCheck.Critical())
	for _, test := range result.Tests[1:] {
		assert.Equal(t, Passed, test.Status, test.Name)
	}
	assert.Equal(t, Failed, result.OverallStatus)
}

func TestValidateTemplateManifestMissing(t *testing.T) {
	root := makeTemplatesRoot(t, map[string]string{"demo": ""})
	stub := newStub()

	result := newValidator(t, root, stub).ValidateTemplate(context.Background(), "demo")

	// URL check fails, sandbox creation fails, downstream checks are
	// absent entirely rather than recorded as skipped.
	assert.Equal(t, []string{GithubURLCheck, SandboxCreate}, testNames(result.Tests))
	assert.Equal(t, Failed, result.Tests[1].Status)
	assert.Equal(t, Failed, result.OverallStatus)
	assert.Empty(t, stub.calls)
}

func TestValidateTemplateDirectoryMissing(t *testing.T) {
	root := makeTemplatesRoot(t, nil)

	result := newValidator(t, root, newStub()).ValidateTemplate(context.Background(), "nope")

	assert.Equal(t, Failed, result.OverallStatus)
	assert.Empty(t, result.Tests)
	assert.Contains(t, result.ErrorMessage, "Template directory not found")
}

func TestValidateTemplatePanicIsContained(t *testing.T) {
	root := makeTemplatesRoot(t, map[string]string{"demo": sampleManifest})
	// A nil runner makes the evaluator panic; the boundary converts
	// it into a single failed result instead of crashing the batch.
	v := NewValidator(root, t.TempDir(), NewEvaluator(nil, "nix", "x86_64-linux"))

	result := v.ValidateTemplate(context.Background(), "demo")

	require.NotEmpty(t, result.Tests)
	last := result.Tests[len(result.Tests)-1]
	assert.Equal(t, SandboxTests, last.Name)
	assert.Equal(t, Failed, last.Status)
	assert.Equal(t, Failed, result.OverallStatus)
}

func TestValidateTemplateRestrictedMode(t *testing.T) {
	security.Initialize(security.ModeRestricted)
	t.Cleanup(func() { security.Initialize(security.ModeStandard) })

	root := makeTemplatesRoot(t, map[string]string{"demo": sampleManifest})
	stub := newStub()

	result := newValidator(t, root, stub).ValidateTemplate(context.Background(), "demo")

	require.Len(t, result.Tests, 4)
	assert.Equal(t, Skipped, result.Tests[2].Status)
	assert.Equal(t, Skipped, result.Tests[3].Status)
	assert.Empty(t, stub.calls)
	assert.Equal(t, Passed, result.OverallStatus)
}

func TestValidateAll(t *testing.T) {
	root := makeTemplatesRoot(t, map[string]string{
		"alpha": sampleManifest,
		"beta":  sampleManifest,
	})
	// Hidden directories are not templates.
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))

	stub := newStub()
	stub.results["check"] = &runner.Result{ExitCode: 0}
	stub.results["show"] = &runner.Result{ExitCode: 0, Stdout: showJSON}

	results := newValidator(t, root, stub).ValidateAll(context.Background())

	assert.Len(t, results, 2)
	assert.Contains(t, results, "alpha")
	assert.Contains(t, results, "beta")
	assert.NotContains(t, results, ErrorKey)

	passed, total := Summarize(results)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 2, total)
}

func TestValidateAllMissingRoot(t *testing.T) {
	v := newValidator(t, filepath.Join(t.TempDir(), "missing"), newStub())

	results := v.ValidateAll(context.Background())

	require.Len(t, results, 1)
	sentinel, ok := results[ErrorKey]
	require.True(t, ok)
	assert.Contains(t, sentinel.ErrorMessage, "Templates directory not found")
	assert.Empty(t, sentinel.Tests)
}

func TestValidateAllEmptyRoot(t *testing.T) {
	v := newValidator(t, t.TempDir(), newStub())

	results := v.ValidateAll(context.Background())

	require.Len(t, results, 1)
	sentinel, ok := results[ErrorKey]
	require.True(t, ok)
	assert.Equal(t, "No template directories found", sentinel.ErrorMessage)
}

func TestAggregate(t *testing.T) {
	tolerated := TestResult{
		Status:  Failed,
		Details: &Details{Suggestion: "This is expected with local path replacement in build environments"},
	}
	critical := TestResult{Status: Failed}
	passed := TestResult{Status: Passed}
	skipped := TestResult{Status: Skipped}

	tests := []struct {
		name  string
		tests []TestResult
		want  TestOutcome
	}{
		{"no tests", nil, Passed},
		{"all passed", []TestResult{passed, passed}, Passed},
		{"tolerated failures only", []TestResult{passed, tolerated, tolerated}, Passed},
		{"skipped is not a failure", []TestResult{passed, skipped}, Passed},
		{"one critical failure", []TestResult{passed, tolerated, critical}, Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.tests))
		})
	}
}

func TestSummarizeExcludesErrorEntries(t *testing.T) {
	results := map[string]*TemplateValidationResult{
		"good":   {TemplateName: "good", OverallStatus: Passed},
		"bad":    {TemplateName: "bad", OverallStatus: Failed},
		"absent": {TemplateName: "absent", OverallStatus: Failed, ErrorMessage: "Template directory not found: absent"},
		ErrorKey: {TemplateName: ErrorKey, OverallStatus: Failed, ErrorMessage: "No template directories found"},
	}

	passed, total := Summarize(results)
	assert.Equal(t, 1, passed)
	assert.Equal(t, 2, total)
}
