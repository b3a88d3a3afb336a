package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/luochen1990/fhsval/internal/storage"
	"github.com/luochen1990/fhsval/internal/validation"
	"github.com/luochen1990/fhsval/pkg/audit"
	"github.com/luochen1990/fhsval/pkg/config"
	"github.com/luochen1990/fhsval/pkg/flake"
	"github.com/luochen1990/fhsval/pkg/progress"
	"github.com/luochen1990/fhsval/pkg/runner"
)

var Cmd = &cobra.Command{
	Use:          "validate",
	Short:        "Validate flake-fhs templates",
	Long:         `Validate every template under the templates directory (or a single one with --template) against the local flake-fhs checkout.`,
	RunE:         runValidate,
	SilenceUsage: true,
}

var (
	templatesDir string
	projectRoot  string
	templateName string
	jsonOutput   bool
	noHistory    bool
)

func init() {
	Cmd.Flags().StringVar(&templatesDir, "templates-dir", "", "path to the templates directory")
	Cmd.Flags().StringVar(&projectRoot, "project-root", "", "path to the flake-fhs checkout used for local path replacement")
	Cmd.Flags().StringVar(&templateName, "template", "", "validate a single template only")
	Cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	Cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if templatesDir != "" {
		cfg.Templates.Dir = templatesDir
	}
	if projectRoot != "" {
		cfg.Templates.ProjectRoot = projectRoot
	}

	if templateName != "" {
		if err := validation.ValidateTemplateName(templateName); err != nil {
			return err
		}
	}
	if err := validation.ValidateSystem(cfg.Nix.System); err != nil {
		return err
	}

	r := runner.New()
	r.Timeout = time.Duration(cfg.Nix.TimeoutSeconds) * time.Second
	evaluator := flake.NewEvaluator(r, cfg.Nix.Binary, cfg.Nix.System)
	validator := flake.NewValidator(cfg.Templates.Dir, cfg.Templates.ProjectRoot, evaluator)

	if err := audit.Initialize(cfg.Audit.Log); err != nil {
		log.Warn().Err(err).Msg("audit log unavailable")
	}

	ctx := context.Background()
	auditCtx := audit.GetLogger().LogOperation(ctx, "template.validate", map[string]interface{}{
		"templates_dir": cfg.Templates.Dir,
		"project_root":  cfg.Templates.ProjectRoot,
		"template":      templateName,
	})

	var results map[string]*flake.TemplateValidationResult
	if templateName != "" {
		results = map[string]*flake.TemplateValidationResult{
			templateName: validator.ValidateTemplate(ctx, templateName),
		}
	} else {
		var spinner *progress.Spinner
		if !jsonOutput {
			spinner = progress.NewSpinner("Validating templates...")
			spinner.Start()
		}
		results = validator.ValidateAll(ctx)
		if spinner != nil {
			spinner.Stop("Validation finished")
		}
	}

	passed, total := flake.Summarize(results)

	if !noHistory && templateName == "" {
		recordRun(cfg, results, passed, total)
	}

	if jsonOutput {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			auditCtx.Failure(err)
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Println(string(output))
	} else {
		printResults(results, passed, total)
	}

	if sentinel, ok := results[flake.ErrorKey]; ok {
		err := fmt.Errorf("%s", sentinel.ErrorMessage)
		auditCtx.Failure(err)
		return err
	}
	// Results that never ran are excluded from the summary denominator
	// but still fail the run: a mistyped --template must not exit 0.
	var notRun []string
	for name, result := range results {
		if result.ErrorMessage != "" {
			notRun = append(notRun, name)
		}
	}
	if len(notRun) > 0 {
		sort.Strings(notRun)
		err := fmt.Errorf("templates could not be validated: %s", strings.Join(notRun, ", "))
		auditCtx.Failure(err)
		return err
	}
	if passed < total {
		err := fmt.Errorf("%d of %d templates failed validation", total-passed, total)
		auditCtx.Failure(err)
		return err
	}

	auditCtx.Success()
	return nil
}

// recordRun stores a batch run in the history database. History is
// best-effort: a storage failure is logged, never fatal.
func recordRun(cfg *config.Config, results map[string]*flake.TemplateValidationResult, passed, total int) {
	if cfg.History.Path == "" {
		return
	}

	store, err := storage.Open(cfg.History.Path)
	if err != nil {
		log.Warn().Err(err).Msg("history database unavailable")
		return
	}
	defer store.Close()

	rec := &storage.RunRecord{
		TemplatesDir: cfg.Templates.Dir,
		Passed:       passed,
		Total:        total,
		Templates:    make(map[string]string),
	}
	for name, r := range results {
		if name == flake.ErrorKey {
			continue
		}
		rec.Templates[name] = string(r.OverallStatus)
	}

	if err := store.AddRun(rec); err != nil {
		log.Warn().Err(err).Msg("failed to record run")
	}
}

func printResults(results map[string]*flake.TemplateValidationResult, passed, total int) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		result := results[name]
		if name == flake.ErrorKey {
			fmt.Printf("❌ %s\n", result.ErrorMessage)
			continue
		}

		icon := "❌"
		if result.OverallStatus == flake.Passed {
			icon = "✅"
		}
		fmt.Printf("%s Template: %s\n", icon, name)

		if result.ErrorMessage != "" {
			fmt.Printf("  ❌ %s\n", result.ErrorMessage)
			continue
		}

		for _, test := range result.Tests {
			fmt.Printf("  %s %s: %s\n", testIcon(test), test.Name, test.Message)
			if test.Details != nil {
				if data, err := json.Marshal(test.Details); err == nil {
					fmt.Printf("    Details: %s\n", data)
				}
			}
		}
		fmt.Println()
	}

	fmt.Printf("Summary: %d/%d templates passed\n", passed, total)
}

func testIcon(test flake.TestResult) string {
	switch {
	case test.Status == flake.Passed:
		return "✅"
	case test.Status == flake.Skipped:
		return "⏭️"
	case test.Tolerated():
		return "⚠️"
	default:
		return "❌"
	}
}
