package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/chainstore"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/configutil"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/quizchain"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/render"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/serviceutil"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/telemetry"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

var solveUrl *string
var solveEmail *string
var solveSecret *string
var solveHeadful *bool
var solveDb *string

func init() {
	solveUrl = solveCmd.Flags().String("url", "", "The quiz page to start the chain from.")
	solveEmail = solveCmd.Flags().String("email", "", "Email to submit answers under, defaults to config.json5.")
	solveSecret = solveCmd.Flags().String("secret", "", "Shared secret, defaults to config.json5.")
	solveHeadful = solveCmd.Flags().Bool("headful", false, "Show the browser window while rendering.")
	solveDb = solveCmd.Flags().String("db", "", "Also record the run to this database.")
	solveCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(solveCmd)
}

var solveCmd = &cobra.Command{
	Use:   "solve --url <start-url> [--email <email>] [--secret <secret>]",
	Short: "Walks one quiz chain to its terminal result and prints every step.",
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(true)

		email := *solveEmail
		secret := *solveSecret
		if email == "" || secret == "" {
			cfg, err := configutil.ReadConfig[Config]("config.json5")
			if err != nil {
				serviceutil.Fatal("no --email/--secret flags and no config.json5", err)
			}
			if email == "" {
				email = cfg.Email
			}
			if secret == "" {
				secret = cfg.Secret
			}
		}

		browser, err := render.NewBrowser(render.Options{Headless: !*solveHeadful})
		if err != nil {
			serviceutil.Fatal("failed to start browser renderer", err)
		}
		defer browser.Close()

		var steps []quizchain.Step
		engine := quizchain.New(quizchain.Options{
			Renderer: browser,
			OnStep: func(s quizchain.Step) {
				steps = append(steps, s)
			},
		})

		t1 := time.Now()
		result, err := engine.Run(cmd.Context(), *solveUrl, email, secret)
		t2 := time.Now()

		printSteps(steps)
		if err != nil {
			serviceutil.Fatal("chain aborted", err)
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		slog.Info("chain finished", "steps", len(steps), "seconds", t2.Sub(t1).Seconds())

		if *solveDb != "" {
			recordRun(cmd.Context(), *solveDb, *solveUrl, email, result, t1, t2)
		}
	},
}

func printSteps(steps []quizchain.Step) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "URL", "Type", "Answer", "Next"})

	for i, s := range steps {
		next, _ := s.Response["url"].(string)
		t.AppendRow(table.Row{i + 1, s.Url, s.Type.String(), s.Answer, next})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func recordRun(ctx context.Context, dbPath, startUrl, email string, result map[string]any, startedAt, finishedAt time.Time) {
	store, err := chainstore.Open(dbPath)
	if err != nil {
		serviceutil.Fatal("failed to open run db", err)
	}
	defer store.Close()

	err = store.Record(ctx, chainstore.Run{
		Id:         uuid.NewString(),
		StartUrl:   startUrl,
		Email:      email,
		Ok:         true,
		Result:     result,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	})
	if err != nil {
		serviceutil.Fatal("failed to record run", err)
	}
}
