package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"advisor/internal/config"
	"advisor/internal/domain"
	"advisor/internal/embedding/openai"
	"advisor/internal/embedding/tfidf"
	"advisor/internal/llm"
	"advisor/internal/logging"
	"advisor/internal/planner"
	"advisor/internal/service"
	"advisor/internal/store/chromem"
	"advisor/internal/store/qdrant"
	"advisor/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, logPath string
	var debug bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/advisor/config.yaml if not provided)")
	flag.StringVar(&logPath, "log", "advisor.log", "Path to the log file")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	// Logs go to a file so they never corrupt the terminal UI.
	logger := logging.NewFileLogger(logPath, debug)
	defer logger.Sync()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fail(logger, "failed to load config", err)
	}

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			fail(logger, "openai embedder config missing", nil)
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			fail(logger, "openai embedder init failed", err)
		}
		emb = client
	default:
		fail(logger, "unknown embedder: "+cfg.Embedder.Type, nil)
	}

	var store domain.KnowledgeStore
	switch cfg.Store.Type {
	case "chromem", "":
		store = chromem.NewStore(cfg.Store.Path, emb, logger)
	case "qdrant":
		if cfg.Store.Qdrant == nil {
			fail(logger, "qdrant config missing", nil)
		}
		store = qdrant.NewStore(qdrant.Config{
			URL:        cfg.Store.Qdrant.URL,
			APIKey:     cfg.Store.Qdrant.APIKey,
			Collection: cfg.Store.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Store.Qdrant.TimeoutSecs) * time.Second,
		}, emb)
	default:
		fail(logger, "unknown store: "+cfg.Store.Type, nil)
	}

	if err := store.Load(context.Background()); err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			fail(logger, "no knowledge store found; run advisor-ingest first", err)
		}
		fail(logger, "failed to load knowledge store", err)
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
		fail(logger, "llm init failed", err)
	}

	composer := planner.New(planner.Config{
		Strategy:   planner.Strategy(cfg.Planner.Strategy),
		Triggers:   cfg.Planner.Triggers,
		StudyBlock: cfg.Planner.StudyBlock,
	}, gen, logger)

	svc := service.New(store, gen, composer, service.Config{
		TopK:         cfg.Session.TopK,
		MemoryTurns:  cfg.Session.MemoryTurns,
		MaxNewTokens: cfg.LLM.MaxNewTokens,
		Temperature:  cfg.LLM.Temperature,
		Sample:       cfg.LLM.Sample,
		Triggers:     cfg.Planner.Triggers,
	}, logger)

	state := domain.NewSessionState()
	summary := fmt.Sprintf("%d chunks indexed | model: %s", store.Count(), modelLabel(cfg))

	logger.Info("starting chat",
		zap.Int("chunks", store.Count()),
		zap.String("store", cfg.Store.Type),
		zap.String("llm_backend", cfg.LLM.Backend),
		zap.String("llm_model", cfg.LLM.Model),
	)

	m := tui.New(svc, state, summary)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fail(logger, "terminal UI failed", err)
	}
}

func modelLabel(cfg *config.AppConfig) string {
	backend := cfg.LLM.Backend
	if backend == "" {
		backend = "ollama"
	}
	return backend + "/" + cfg.LLM.Model
}

// fail reports a startup error on stderr as well, since the log file is
// not visible to the user.
func fail(logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
