package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/chainstore"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/configutil"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/quizchain"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/render"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/serviceutil"
	"github.com/Ojal2/llm-analysis-quiz-ojal/lib/telemetry"
	"github.com/Ojal2/llm-analysis-quiz-ojal/services/quiz"

	"github.com/joho/godotenv"
)

type BrowserConfig struct {
	ControlUrl          string `json:"control_url"`
	Headless            bool   `json:"headless"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
}

type Config struct {
	Port    int           `json:"port"`
	Secret  string        `json:"secret"`
	Db      string        `json:"db"`
	Verbose bool          `json:"verbose"`
	Browser BrowserConfig `json:"browser"`
}

func main() {
	ctx := serviceutil.SignalContext()

	// the original deployment kept the shared secret in a .env file
	godotenv.Load()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to load configuration", err)
	}
	if config.Port == 0 {
		config.Port = 9333
	}
	if config.Db == "" {
		config.Db = "quizd.db"
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("LLM_QUIZ_SECRET")
	}
	if config.Secret == "" {
		serviceutil.Fatal(
			"no shared secret configured",
			os.ErrNotExist,
		)
	}

	telemetry.InitSlog(config.Verbose)
	tel, err := telemetry.SetupFromEnv(ctx, "quizd")
	if os.IsNotExist(err) {
		slog.Warn("no telemetry.json5 found, running without otlp export")
	} else if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	} else {
		defer tel.Shutdown(ctx)
		telemetry.InstrumentPerfStats(ctx)
	}

	browser, err := render.NewBrowser(render.Options{
		ControlUrl:        config.Browser.ControlUrl,
		Headless:          config.Browser.Headless,
		NavigationTimeout: time.Duration(config.Browser.NavigationTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		serviceutil.Fatal("failed to start browser renderer", err)
	}
	defer browser.Close()

	store, err := chainstore.Open(config.Db)
	if err != nil {
		serviceutil.Fatal("failed to open run db", err)
	}
	defer store.Close()

	engine := quizchain.New(quizchain.Options{Renderer: browser})
	service := quiz.NewService(config.Secret, engine, store)

	mux := http.NewServeMux()
	mux.Handle("/quiz", quiz.NewHandler(service))
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}
