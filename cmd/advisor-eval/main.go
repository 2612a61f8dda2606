package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"advisor/internal/config"
	"advisor/internal/domain"
	"advisor/internal/embedding/openai"
	"advisor/internal/embedding/tfidf"
	"advisor/internal/eval"
	"advisor/internal/llm"
	"advisor/internal/logging"
	"advisor/internal/planner"
	"advisor/internal/service"
	"advisor/internal/store/chromem"
	"advisor/internal/store/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, questions, questionsDir, outPath string
	var limit int
	var debug bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/advisor/config.yaml if not provided)")
	flag.StringVar(&questions, "questions", "", "Path to a JSON question file")
	flag.StringVar(&questionsDir, "dir", "", "Directory to scan for question files (used when --questions is not set)")
	flag.StringVar(&outPath, "out", "evaluation_results.csv", "Path for the detailed CSV results")
	flag.IntVar(&limit, "limit", 0, "Evaluate at most this many questions (0 for all)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logger := logging.NewConsoleLogger(debug)
	defer logger.Sync()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	items, err := loadQuestionSet(questions, questionsDir)
	if err != nil {
		logger.Fatal("failed to load questions", zap.Error(err))
	}
	logger.Info("question set loaded", zap.Int("questions", len(items)))

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			logger.Fatal("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			logger.Fatal("openai embedder init failed", zap.Error(err))
		}
		emb = client
	default:
		logger.Fatal("unknown embedder", zap.String("type", cfg.Embedder.Type))
	}

	var store domain.KnowledgeStore
	switch cfg.Store.Type {
	case "chromem", "":
		store = chromem.NewStore(cfg.Store.Path, emb, logger)
	case "qdrant":
		if cfg.Store.Qdrant == nil {
			logger.Fatal("qdrant config missing")
		}
		store = qdrant.NewStore(qdrant.Config{
			URL:        cfg.Store.Qdrant.URL,
			APIKey:     cfg.Store.Qdrant.APIKey,
			Collection: cfg.Store.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Store.Qdrant.TimeoutSecs) * time.Second,
		}, emb)
	default:
		logger.Fatal("unknown store", zap.String("type", cfg.Store.Type))
	}

	ctx := context.Background()
	if err := store.Load(ctx); err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			logger.Fatal("no knowledge store found; run advisor-ingest first", zap.Error(err))
		}
		logger.Fatal("failed to load knowledge store", zap.Error(err))
	}

	gen, err := llm.New(llm.Config{
		Backend:      cfg.LLM.Backend,
		Model:        cfg.LLM.Model,
		BaseURL:      cfg.LLM.BaseURL,
		APIKeyEnv:    cfg.LLM.APIKeyEnv,
		Timeout:      time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		MaxNewTokens: cfg.LLM.MaxNewTokens,
		Temperature:  cfg.LLM.Temperature,
		Sample:       cfg.LLM.Sample,
	}, logger)
	if err != nil {
		logger.Fatal("llm init failed", zap.Error(err))
	}

	composer := planner.New(planner.Config{
		Strategy:   planner.Strategy(cfg.Planner.Strategy),
		Triggers:   cfg.Planner.Triggers,
		StudyBlock: cfg.Planner.StudyBlock,
	}, gen, logger)

	svc := service.New(store, gen, composer, service.Config{
		TopK:        cfg.Session.TopK,
		MemoryTurns: cfg.Session.MemoryTurns,
		Triggers:    cfg.Planner.Triggers,
	}, logger)

	start := time.Now()
	results := eval.NewRunner(svc, logger).Run(ctx, items, limit)
	report := eval.Analyze(results, 5)
	logger.Info("evaluation finished",
		zap.Int("questions", report.Total),
		zap.Duration("took", time.Since(start)))

	printReport(report)

	out, err := os.Create(outPath)
	if err != nil {
		logger.Fatal("failed to create results file", zap.Error(err))
	}
	defer out.Close()
	if err := eval.WriteCSV(out, results); err != nil {
		logger.Fatal("failed to write results", zap.Error(err))
	}
	fmt.Printf("\nDetailed results saved to %s\n", outPath)
}

// loadQuestionSet resolves the question file: an explicit path wins,
// otherwise the first question set discovered in the directory.
func loadQuestionSet(path, dir string) ([]eval.Item, error) {
	if path != "" {
		return eval.LoadQuestions(path)
	}
	if dir == "" {
		return nil, errors.New("either --questions or --dir is required")
	}
	candidates, err := eval.Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no question files found in %s", dir)
	}
	return eval.LoadQuestions(candidates[0])
}

func printReport(report eval.Report) {
	fmt.Println("===== Evaluation Results =====")
	fmt.Printf("questions:     %d\n", report.Total)
	fmt.Printf("average score: %.3f\n", report.AverageScore)
	fmt.Printf("failures:      %d (%.1f%%)\n", report.Failures, report.FailureRate*100)

	if len(report.Groups) > 0 {
		fmt.Println("\n===== Group Performance =====")
		for _, group := range report.Groups {
			fmt.Printf("%-20s %.3f\n", group.Group, group.Score)
		}
	}

	if len(report.Best) > 0 {
		fmt.Println("\n===== Best Performing Questions =====")
		for _, res := range report.Best {
			fmt.Printf("Q: %s\nScore: %.2f\n---\n", res.Question, res.Score)
		}
	}
	if len(report.Worst) > 0 {
		fmt.Println("\n===== Worst Performing Questions =====")
		for _, res := range report.Worst {
			fmt.Printf("Q: %s\nScore: %.2f\n---\n", res.Question, res.Score)
		}
	}
}
