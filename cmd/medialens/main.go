package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/thinkscotty/medialens/internal/ai"
	"github.com/thinkscotty/medialens/internal/browser"
	"github.com/thinkscotty/medialens/internal/config"
	"github.com/thinkscotty/medialens/internal/pipeline"
	"github.com/thinkscotty/medialens/internal/report"
	"github.com/thinkscotty/medialens/internal/runlog"
	"github.com/thinkscotty/medialens/internal/schema"
	"github.com/thinkscotty/medialens/internal/sources"
	"github.com/thinkscotty/medialens/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	topic := flag.String("topic", "", "News topic to research")
	numSources := flag.Int("sources", 0, "Number of sources to select (1-15)")
	model := flag.String("model", "", "Model to use (prefix with ollama: for a local model)")
	mode := flag.String("mode", "", "Extraction mode: sequential or batch")
	configPath := flag.String("config", "medialens.yaml", "Path to configuration file")
	runsDir := flag.String("runs-dir", "", "Directory for per-run artifacts")
	showHistory := flag.Bool("history", false, "Show recent runs and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("medialens %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// CLI flags win over file and environment
	if *topic != "" {
		cfg.Topic = *topic
	}
	if *numSources != 0 {
		cfg.NumSources = *numSources
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *mode != "" {
		cfg.Extraction.Mode = *mode
	}
	if *runsDir != "" {
		cfg.RunsDir = *runsDir
	}

	// Initialize logger
	var logLevel slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *showHistory {
		if err := printHistory(cfg.HistoryDB); err != nil {
			slog.Error("Failed to read history", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if cfg.Topic == "" {
		fmt.Fprintln(os.Stderr, "A topic is required: pass -topic or set NEWS_TOPIC")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	startedAt := time.Now()

	provider, modelName, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	if provider.Name() == "ollama" {
		checkCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ai.TestConnection(checkCtx, cfg.Providers.OllamaURL); err != nil {
			return fmt.Errorf("ollama not reachable: %w", err)
		}
	}

	sessions, err := browser.NewFactory(cfg.Browser.Backend, cfg.Browser.Headless)
	if err != nil {
		return err
	}

	artifacts, err := runlog.New(cfg.RunsDir)
	if err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	defer artifacts.Close()

	slog.Info("Starting run",
		"run_id", artifacts.ID,
		"topic", cfg.Topic,
		"model", modelName,
		"provider", provider.Name(),
		"num_sources", cfg.NumSources)

	ctx := context.Background()

	// Phase 1: planning
	planLog, err := artifacts.PhaseLogger("planning")
	if err != nil {
		return err
	}
	planner := &pipeline.Planner{
		Provider: provider,
		Model:    modelName,
		Catalog:  sources.Catalog,
		Logger:   planLog,
	}
	plan, err := planner.Run(ctx, cfg.Topic, cfg.NumSources)
	if err != nil {
		return fmt.Errorf("planning phase: %w", err)
	}
	if err := artifacts.SaveSnapshot("planning_output", plan); err != nil {
		slog.Warn("Failed to save planning snapshot", "error", err)
	}

	// Phase 2: extraction
	extractLog, err := artifacts.PhaseLogger("extraction")
	if err != nil {
		return err
	}
	extractor := &pipeline.Extractor{
		Provider:  provider,
		Model:     modelName,
		Sessions:  sessions,
		Mode:      cfg.Extraction.Mode,
		BatchSize: cfg.Extraction.BatchSize,
		Cooldown:  time.Duration(cfg.Extraction.CooldownSeconds) * time.Second,
		Logger:    extractLog,
		Responses: artifacts,
	}
	results := extractor.Run(ctx, cfg.Topic, plan.SelectedSources)
	if err := artifacts.SaveSnapshot("extraction_results", results); err != nil {
		slog.Warn("Failed to save extraction snapshot", "error", err)
	}

	// Phase 3: aggregation
	aggLog, err := artifacts.PhaseLogger("aggregation")
	if err != nil {
		return err
	}
	aggregator := &pipeline.Aggregator{
		Provider: provider,
		Model:    modelName,
		Logger:   aggLog,
	}
	agg, err := aggregator.Run(ctx, cfg.Topic, results)
	if err != nil {
		return fmt.Errorf("aggregation phase: %w", err)
	}
	if err := artifacts.SaveSnapshot("aggregation_output", agg); err != nil {
		slog.Warn("Failed to save aggregation snapshot", "error", err)
	}

	reportPath, err := artifacts.WriteReport(report.Render(agg))
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	recordHistory(cfg, artifacts.ID, modelName, reportPath, startedAt, agg, results)

	slog.Info("Run complete",
		"run_id", artifacts.ID,
		"sources_checked", agg.TotalSourcesChecked,
		"sources_with_coverage", agg.SourcesWithCoverage,
		"duration_ms", time.Since(startedAt).Milliseconds())
	fmt.Println(reportPath)
	return nil
}

// buildProvider resolves the configured model to a provider. Models with
// an "ollama:" prefix run locally; everything else goes to DeepSeek.
func buildProvider(cfg config.Config) (ai.Provider, string, error) {
	if name, ok := strings.CutPrefix(cfg.Model, "ollama:"); ok {
		p := ai.NewOllamaProvider(cfg.Providers.OllamaURL)
		if name == "" {
			name = "mistral-nemo"
		}
		return p, name, nil
	}
	if cfg.Providers.DeepSeekAPIKey == "" {
		return nil, "", fmt.Errorf("DEEPSEEK_API_KEY is not set (use an ollama: model for local runs)")
	}
	return ai.NewDeepSeekProvider(cfg.Providers.DeepSeekAPIKey, cfg.Providers.DeepSeekBaseURL), cfg.Model, nil
}

// recordHistory is best-effort; a broken history database never fails a run.
func recordHistory(cfg config.Config, runID, model, reportPath string, startedAt time.Time, agg *schema.AggregationOutput, results []schema.SourceProcessingResult) {
	db, err := store.New(cfg.HistoryDB)
	if err != nil {
		slog.Warn("Failed to open history database", "error", err)
		return
	}
	defer db.Close()

	rec := store.RunRecord{
		ID:           runID,
		Topic:        agg.Topic,
		Model:        model,
		TotalChecked: agg.TotalSourcesChecked,
		WithCoverage: agg.SourcesWithCoverage,
		ReportPath:   reportPath,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}
	if err := db.RecordRun(rec, results); err != nil {
		slog.Warn("Failed to record run history", "error", err)
	}
}

func printHistory(path string) error {
	db, err := store.New(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.RecentRuns(20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-40q  %d/%d covered  %s\n",
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Topic,
			r.WithCoverage,
			r.TotalChecked,
			r.ReportPath)
	}
	return nil
}
