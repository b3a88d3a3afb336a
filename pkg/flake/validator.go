package flake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luochen1990/fhsval/pkg/metrics"
	"github.com/luochen1990/fhsval/pkg/security"
)

// ErrorKey is the sentinel entry returned by ValidateAll when the
// templates root is absent or empty. Callers must check for it before
// treating the mapping as per-template results.
const ErrorKey = "error"

// Validator orchestrates the per-template check sequence: canonical
// reference check, sandbox materialization, nix structural check and
// output enumeration, then the critical-failure aggregation policy.
// Templates are validated sequentially; each gets its own disposable
// sandbox, removed on every exit path.
type Validator struct {
	templatesDir string
	sandbox      *SandboxBuilder
	evaluator    *Evaluator
}

func NewValidator(templatesDir, projectRoot string, evaluator *Evaluator) *Validator {
	return &Validator{
		templatesDir: templatesDir,
		sandbox:      &SandboxBuilder{ProjectRoot: projectRoot},
		evaluator:    evaluator,
	}
}

// ValidateTemplate runs the full check sequence for one template.
// Failures never propagate out: every error is converted into a
// recorded TestResult or the result's ErrorMessage, so one broken
// template cannot abort a batch run.
func (v *Validator) ValidateTemplate(ctx context.Context, name string) *TemplateValidationResult {
	start := time.Now()
	templatePath := filepath.Join(v.templatesDir, name)

	info, err := os.Stat(templatePath)
	if err != nil || !info.IsDir() {
		metrics.RecordValidation("error", time.Since(start).Seconds())
		return &TemplateValidationResult{
			TemplateName:  name,
			OverallStatus: Failed,
			Tests:         []TestResult{},
			ErrorMessage:  fmt.Sprintf("Template directory not found: %s", templatePath),
		}
	}

	tests := []TestResult{v.checkGithubURL(templatePath)}
	tests = append(tests, v.sandboxChecks(ctx, name, templatePath)...)

	overall := Aggregate(tests)
	for _, t := range tests {
		metrics.RecordCheck(t.Name, strings.ToLower(string(t.Status)))
	}
	metrics.RecordValidation(strings.ToLower(string(overall)), time.Since(start).Seconds())
	log.Info().
		Str("template", name).
		Str("status", string(overall)).
		Int("tests", len(tests)).
		Dur("duration", time.Since(start)).
		Msg("template validated")

	return &TemplateValidationResult{
		TemplateName:  name,
		OverallStatus: overall,
		Tests:         tests,
	}
}

// checkGithubURL verifies the template manifest declares the canonical
// remote reference. Always runs and is always recorded.
func (v *Validator) checkGithubURL(templatePath string) TestResult {
	data, err := os.ReadFile(filepath.Join(templatePath, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return TestResult{
				Name:    GithubURLCheck,
				Status:  Failed,
				Message: "flake.nix not found in template",
			}
		}
		return TestResult{
			Name:    GithubURLCheck,
			Status:  Failed,
			Message: fmt.Sprintf("Error reading template file: %v", err),
		}
	}

	content := string(data)
	if ContainsCanonicalRef(content) {
		return TestResult{
			Name:    GithubURLCheck,
			Status:  Passed,
			Message: "Template uses correct GitHub URL",
		}
	}
	return TestResult{
		Name:    GithubURLCheck,
		Status:  Failed,
		Message: fmt.Sprintf("Template does not use expected GitHub URL: %s", CanonicalRef),
		Details: &Details{FoundURLs: DeclaredRefs(content)},
	}
}

// sandboxChecks materializes the disposable local-path copy and runs
// the nix checks inside it. The sandbox directory is removed on every
// exit path, and a panic in any phase is converted into a single
// failed result.
func (v *Validator) sandboxChecks(ctx context.Context, name, templatePath string) (tests []TestResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("template", name).Interface("panic", r).Msg("sandbox checks panicked")
			tests = append(tests, TestResult{
				Name:    SandboxTests,
				Status:  Failed,
				Message: fmt.Sprintf("Error in sandboxed template tests: %v", r),
			})
		}
	}()

	tempDir, err := os.MkdirTemp("", "fhsval-"+name+"-")
	if err != nil {
		tests = append(tests, TestResult{
			Name:    SandboxCreate,
			Status:  Failed,
			Message: fmt.Sprintf("Error creating temporary template: %v", err),
		})
		return tests
	}
	defer os.RemoveAll(tempDir)

	if err := v.sandbox.Materialize(templatePath, tempDir); err != nil {
		tests = append(tests, TestResult{
			Name:    SandboxCreate,
			Status:  Failed,
			Message: fmt.Sprintf("Error creating temporary template: %v", err),
		})
		return tests
	}
	tests = append(tests, TestResult{
		Name:    SandboxCreate,
		Status:  Passed,
		Message: "Temporary template created with local path",
	})

	if !security.CanInvoke() {
		tests = append(tests,
			TestResult{Name: FlakeCheck, Status: Skipped, Message: "Skipped: external invocation disabled (restricted mode)"},
			TestResult{Name: OutputsCheck, Status: Skipped, Message: "Skipped: external invocation disabled (restricted mode)"},
		)
		return tests
	}

	check := v.evaluator.Check(ctx, tempDir)
	tests = append(tests, check)

	// Output enumeration runs after a clean check, or after a failure
	// classified as a tolerated local-path substitution artifact.
	if check.Status == Passed || check.Tolerated() {
		tests = append(tests, v.evaluator.Outputs(ctx, tempDir))
	} else {
		tests = append(tests, TestResult{
			Name:    OutputsCheck,
			Status:  Skipped,
			Message: "Skipped due to flake check failures",
		})
	}
	return tests
}

// ValidateAll validates every immediate subdirectory of the templates
// root (hidden directories excluded), collecting results by template
// name. An absent root or zero discovered templates yields a single
// sentinel entry under ErrorKey.
func (v *Validator) ValidateAll(ctx context.Context) map[string]*TemplateValidationResult {
	results := make(map[string]*TemplateValidationResult)

	entries, err := os.ReadDir(v.templatesDir)
	if err != nil {
		results[ErrorKey] = &TemplateValidationResult{
			TemplateName:  ErrorKey,
			OverallStatus: Failed,
			Tests:         []TestResult{},
			ErrorMessage:  fmt.Sprintf("Templates directory not found: %s", v.templatesDir),
		}
		return results
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		results[ErrorKey] = &TemplateValidationResult{
			TemplateName:  ErrorKey,
			OverallStatus: Failed,
			Tests:         []TestResult{},
			ErrorMessage:  "No template directories found",
		}
		return results
	}

	for _, name := range names {
		results[name] = v.ValidateTemplate(ctx, name)
	}
	return results
}
