package history

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luochen1990/fhsval/internal/storage"
	"github.com/luochen1990/fhsval/pkg/config"
	"github.com/luochen1990/fhsval/pkg/utils"
)

var Cmd = &cobra.Command{
	Use:          "history",
	Short:        "List recorded validation runs",
	RunE:         runHistory,
	SilenceUsage: true,
}

var (
	limit      int
	jsonOutput bool
)

func init() {
	Cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	Cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := storage.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		output, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal runs: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No validation runs recorded")
		return nil
	}

	table := utils.NewTable("RUN", "TIME", "PASSED", "TEMPLATES DIR")
	for _, run := range runs {
		table.AddRow(
			shortID(run.ID),
			run.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", run.Passed, run.Total),
			run.TemplatesDir,
		)
	}
	table.Render()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
