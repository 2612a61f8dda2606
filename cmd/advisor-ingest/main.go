package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"advisor/internal/chunker"
	"advisor/internal/config"
	"advisor/internal/domain"
	"advisor/internal/embedding/openai"
	"advisor/internal/embedding/tfidf"
	"advisor/internal/ingest"
	"advisor/internal/logging"
	"advisor/internal/store/chromem"
	"advisor/internal/store/qdrant"
	"advisor/internal/summarizer"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, dir string
	var debug bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/advisor/config.yaml if not provided)")
	flag.StringVar(&dir, "dir", "", "Directory of documents to ingest (overrides config)")
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
	if dir != "" {
		cfg.Ingest.Dir = dir
	}

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

	ck := chunker.NewTextChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	loader := ingest.NewLoader(ck, logger)

	chunks, err := loader.Ingest(cfg.Ingest.Dir)
	if err != nil {
		logger.Error("ingestion failed", zap.String("dir", cfg.Ingest.Dir), zap.Error(err))
		fmt.Fprintf(os.Stderr, "ingestion failed: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	if err := store.Build(context.Background(), chunks); err != nil {
		logger.Error("index build failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "index build failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info("knowledge store built",
		zap.String("dir", cfg.Ingest.Dir),
		zap.Int("chunks", len(chunks)),
		zap.String("store", cfg.Store.Type),
		zap.Duration("took", time.Since(start)),
	)
	location := cfg.Store.Path
	if cfg.Store.Type == "qdrant" {
		location = cfg.Store.Qdrant.URL
	}
	fmt.Printf("Indexed %d chunks into %s\n", len(chunks), location)
	if summary := corpusSummary(chunks); summary != "" {
		fmt.Printf("Corpus summary: %s\n", summary)
	}
}

// corpusSummary condenses a sample of the indexed text into a few
// sentences so the operator can sanity-check what went in.
func corpusSummary(chunks []domain.Chunk) string {
	var sb strings.Builder
	for i, ch := range chunks {
		if i >= 20 {
			break
		}
		sb.WriteString(ch.Text)
		sb.WriteString(" ")
	}
	out, err := summarizer.NewFrequencySummarizer().Summarize(sb.String(), 3)
	if err != nil {
		return ""
	}
	return out
}
