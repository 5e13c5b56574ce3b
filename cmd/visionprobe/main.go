// Command visionprobe runs object-hallucination sweeps against vision
// models and evaluates the recorded trials.
//
// Run a sweep from a config file:
//
//	visionprobe run --config sweep.yaml
//
// Run with flags only, writing result files under ./results:
//
//	OPENAI_API_KEY=... visionprobe run \
//	  --provider openai --model gpt-4o \
//	  --ground-truth GroundTruth.csv --image-root images \
//	  --prompts baseline,misleading1,mitigate1 \
//	  --concurrency 4
//
// Evaluate an existing results directory:
//
//	visionprobe eval --results ./results --output ./evaluation_outputs
//
// Mine typical cases (framing flipped the answer):
//
//	visionprobe cases --results ./results --model gpt-4o
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/visionprobe/config"
	"github.com/dshills/visionprobe/probe"
	"github.com/dshills/visionprobe/probe/emit"
	"github.com/dshills/visionprobe/probe/score"
	"github.com/dshills/visionprobe/probe/store"
	"github.com/dshills/visionprobe/probe/vision"
	"github.com/dshills/visionprobe/probe/vision/anthropic"
	"github.com/dshills/visionprobe/probe/vision/google"
	"github.com/dshills/visionprobe/probe/vision/openai"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "eval":
		err = evalCmd(os.Args[2:])
	case "cases":
		err = casesCmd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: visionprobe <command> [flags]

commands:
  run     execute a hallucination sweep and persist trials
  eval    compute metrics from recorded trials (CSVs + workbook)
  cases   mine trials where the prompt framing flipped the answer

Run "visionprobe <command> -h" for command flags.
`)
}

// retryAware is implemented by every provider adapter.
type retryAware interface {
	SetRetryPolicy(vision.RetryPolicy)
}

func buildModel(cfg config.Config, metrics *probe.PrometheusMetrics) (vision.Model, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	var model vision.Model
	switch cfg.Provider {
	case config.ProviderOpenAI:
		model = openai.NewVisionModel(apiKey, cfg.Model)
	case config.ProviderAnthropic:
		model = anthropic.NewVisionModel(apiKey, cfg.Model)
	case config.ProviderGoogle:
		model = google.NewVisionModel(apiKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if metrics != nil {
		if ra, ok := model.(retryAware); ok {
			policy := vision.DefaultRetryPolicy()
			policy.OnRetry = func(reason string) {
				metrics.IncrementRetries(cfg.Model, reason)
			}
			ra.SetRetryPolicy(policy)
		}
	}

	return model, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreJSON:
		return store.NewJSONStore(cfg.OutputDir)
	case config.StoreSQLite:
		return store.NewSQLiteStore(cfg.StorePath)
	case config.StoreMySQL:
		dsn, err := config.MySQLDSN()
		if err != nil {
			return nil, err
		}
		return store.NewMySQLStore(dsn)
	case config.StoreMemory:
		return store.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		configPath  = fs.String("config", "", "Path to YAML sweep configuration")
		provider    = fs.String("provider", "", "Vision provider: openai, anthropic, google")
		model       = fs.String("model", "", "Model identifier")
		groundTruth = fs.String("ground-truth", "", "Path to ground-truth CSV")
		imageRoot   = fs.String("image-root", "", "Directory holding the per-folder image tree")
		outputDir   = fs.String("output", "", "Directory for result files")
		folders     = fs.String("folders", "", "Comma-separated dataset folders")
		prompts     = fs.String("prompts", "", "Comma-separated prompt modes (or 'all')")
		storeKind   = fs.String("store", "", "Trial store: json, sqlite, mysql, memory")
		storePath   = fs.String("store-path", "", "SQLite database path")
		concurrency = fs.Int("concurrency", 0, "Simultaneous provider calls")
		timeout     = fs.Duration("request-timeout", 0, "Per-trial deadline including retries")
		maxTokens   = fs.Int("max-tokens", 0, "Completion token budget override")
		runID       = fs.String("run-id", "", "Run identifier (default: new UUID)")
		jsonLog     = fs.Bool("json-log", false, "Emit JSONL events instead of text")
		metricsAddr = fs.String("metrics-addr", "", "Expose Prometheus /metrics on this address during the sweep")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	applyRunFlags(&cfg, *provider, *model, *groundTruth, *imageRoot, *outputDir,
		*folders, *prompts, *storeKind, *storePath, *concurrency, *timeout, *maxTokens)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *probe.PrometheusMetrics
	if *metricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = probe.NewPrometheusMetrics(registry)
		go serveMetrics(*metricsAddr, registry)
	}

	visionModel, err := buildModel(cfg, metrics)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	rows, err := probe.LoadGroundTruth(cfg.GroundTruth)
	if err != nil {
		return err
	}
	cases := probe.BuildCases(rows, cfg.ImageRoot, cfg.Folders)

	opts := []probe.Option{
		probe.WithPrompts(cfg.PromptModes()...),
		probe.WithMaxConcurrent(cfg.Concurrency),
		probe.WithEmitter(emit.NewLogEmitter(os.Stdout, *jsonLog)),
		probe.WithTrialSink(st),
	}
	if cfg.RequestTimeout.Std() > 0 {
		opts = append(opts, probe.WithRequestTimeout(cfg.RequestTimeout.Std()))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, probe.WithMaxTokens(cfg.MaxTokens))
	}
	if metrics != nil {
		opts = append(opts, probe.WithMetrics(metrics))
	}

	engine := probe.NewEngine(visionModel, cfg.Model, opts...)

	report, err := engine.Run(ctx, *runID, cases)
	if report != nil {
		fmt.Printf("run %s: %d trials, %d errors, %d skipped, %s elapsed\n",
			report.RunID, len(report.Trials), len(report.Errors()), report.Skipped,
			report.Elapsed.Round(time.Millisecond))
	}
	return err
}

func applyRunFlags(cfg *config.Config, provider, model, groundTruth, imageRoot, outputDir,
	folders, prompts, storeKind, storePath string, concurrency int, timeout time.Duration, maxTokens int,
) {
	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Model = model
	}
	if groundTruth != "" {
		cfg.GroundTruth = groundTruth
	}
	if imageRoot != "" {
		cfg.ImageRoot = imageRoot
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if folders != "" {
		cfg.Folders = splitList(folders)
	}
	if prompts != "" {
		if prompts == "all" {
			cfg.Prompts = nil
			for _, m := range probe.AllPromptModes() {
				cfg.Prompts = append(cfg.Prompts, string(m))
			}
		} else {
			cfg.Prompts = splitList(prompts)
		}
	}
	if storeKind != "" {
		cfg.Store = storeKind
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if timeout > 0 {
		cfg.RequestTimeout = config.Duration(timeout)
	}
	if maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintln(os.Stderr, "metrics listener:", err)
	}
}

// loadTrials reads trials from either a results directory or a sqlite
// database, depending on which flag was given.
func loadTrials(resultsDir, dbPath, model string) ([]probe.Trial, error) {
	if resultsDir != "" && dbPath != "" {
		return nil, fmt.Errorf("give either --results or --db, not both")
	}

	switch {
	case dbPath != "":
		st, err := store.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = st.Close() }()
		return st.ListTrials(context.Background(), store.Query{Model: model})
	case resultsDir != "":
		trials, err := store.ReadResultDir(resultsDir)
		if err != nil {
			return nil, err
		}
		if model == "" {
			return trials, nil
		}
		var filtered []probe.Trial
		for _, t := range trials {
			if t.Model == model {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) == 0 {
			return nil, store.ErrNotFound
		}
		return filtered, nil
	default:
		return nil, fmt.Errorf("either --results or --db is required")
	}
}

func evalCmd(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	var (
		resultsDir = fs.String("results", "", "Directory of *_results.json files")
		dbPath     = fs.String("db", "", "SQLite database of trials")
		model      = fs.String("model", "", "Restrict evaluation to one model")
		outputDir  = fs.String("output", "evaluation_outputs", "Directory for CSVs and the workbook")
		workbook   = fs.String("workbook", "hallucination_report.xlsx", "Workbook file name (empty to skip)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	trials, err := loadTrials(*resultsDir, *dbPath, *model)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d trials\n", len(trials))

	if err := score.WriteMetricsCSVs(*outputDir, trials); err != nil {
		return err
	}
	fmt.Println("CSV files saved to", *outputDir)

	if *workbook != "" {
		path := filepath.Join(*outputDir, *workbook)
		if err := score.WriteWorkbook(path, trials); err != nil {
			return err
		}
		fmt.Println("workbook saved to", path)
	}

	return nil
}

func casesCmd(args []string) error {
	fs := flag.NewFlagSet("cases", flag.ExitOnError)
	var (
		resultsDir = fs.String("results", "", "Directory of *_results.json files")
		dbPath     = fs.String("db", "", "SQLite database of trials")
		model      = fs.String("model", "", "Restrict mining to one model")
		baseline   = fs.String("baseline", "baseline", "Baseline prompt mode")
		misleading = fs.String("misleading", "misleading1", "Misleading prompt mode for case A")
		mitigation = fs.String("mitigation", "mitigate1", "Mitigation prompt mode for case B")
		outputDir  = fs.String("output", ".", "Directory for case CSVs")
		limit      = fs.Int("limit", 5, "Cases to print per list (0 prints none)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	trials, err := loadTrials(*resultsDir, *dbPath, *model)
	if err != nil {
		return err
	}

	caseA := score.FindCaseA(trials, *baseline, *misleading)
	caseB := score.FindCaseB(trials, *baseline, *mitigation)

	fmt.Printf("case A (%s correct, %s hallucinated): %d\n", *baseline, *misleading, len(caseA))
	printCases(caseA, *limit)
	fmt.Printf("case B (%s hallucinated, %s corrected): %d\n", *baseline, *mitigation, len(caseB))
	printCases(caseB, *limit)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := score.WriteCasesCSV(filepath.Join(*outputDir, score.CaseACSV), *misleading, caseA); err != nil {
		return err
	}
	if err := score.WriteCasesCSV(filepath.Join(*outputDir, score.CaseBCSV), *mitigation, caseB); err != nil {
		return err
	}
	fmt.Println("case CSVs saved to", *outputDir)

	return nil
}

func printCases(cases []score.TypicalCase, limit int) {
	for i, c := range cases {
		if i >= limit {
			break
		}
		fmt.Printf("  %s/%s object=%s %s -> %s\n",
			c.Folder, c.Filename, c.Object, c.BaselineAnswer, c.OtherAnswer)
	}
}
