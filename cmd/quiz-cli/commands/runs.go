package commands

import (
	"encoding/json"
	"os"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/chainstore"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsDb *string
var runsLimit *int

func init() {
	runsDb = runsCmd.Flags().String("db", "quizd.db", "The run database to read.")
	runsLimit = runsCmd.Flags().Int("limit", 20, "Maximum number of runs to print.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--db <path/to/quizd.db>] [--limit <n>]",
	Short: "Prints recorded chain runs, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := chainstore.Open(*runsDb)
		if err != nil {
			serviceutil.Fatal("failed to open run db", err)
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), *runsLimit)
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Started", "Run", "Start URL", "OK", "Result"})

		for _, r := range runs {
			result, _ := json.Marshal(r.Result)
			t.AppendRow(table.Row{
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Id,
				r.StartUrl,
				r.Ok,
				string(result),
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
