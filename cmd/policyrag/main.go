package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"policyrag/internal/config"
	"policyrag/internal/embedding/openai"
	"policyrag/internal/service"
	"policyrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  = flag.String("config", "", "Path to YAML config file (optional; uses ~/.config/policyrag/config.yaml if not provided)")
		query    = flag.String("query", "", "Run a single query and print ranked results instead of starting the UI")
		topK     = flag.Int("top", 0, "Number of results to return (default from config)")
		asCtx    = flag.Bool("context", false, "With -query, print the formatted context block instead of ranked results")
		maxChars = flag.Int("max-chars", 0, "With -context, maximum context length in characters (default from config)")
		debug    = flag.Bool("debug", false, "Verbose build/load logging")
	)
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if *cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(*cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := zap.NewNop()
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("failed to init logger: %v", err)
		}
		defer logger.Sync()
	}

	emb, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		BatchSize: cfg.Embedder.BatchSize,
	})
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	engine := service.New(emb, logger)
	if err := engine.BuildIndex(context.Background(), cfg.Corpus.Path, cfg.Cache.Dir); err != nil {
		log.Fatalf("index build failed: %v", err)
	}

	k := *topK
	if k <= 0 {
		k = cfg.Retrieval.TopK
	}

	if *query != "" {
		runQuery(engine, cfg, *query, k, *asCtx, *maxChars)
		return
	}

	m := tui.New(engine, k)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func runQuery(engine *service.Engine, cfg *config.AppConfig, query string, topK int, asContext bool, maxChars int) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if asContext {
		if maxChars <= 0 {
			maxChars = cfg.Retrieval.MaxContextChars
		}
		fmt.Println(engine.Context(ctx, query, maxChars, topK))
		return
	}

	results, err := engine.Retrieve(ctx, query, topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "retrieval failed: %v\n", err)
		os.Exit(1)
	}
	for _, r := range results {
		fmt.Printf("%d. [%s] distance=%.3f\n", r.Rank, r.Section, r.Distance)
		fmt.Printf("   Q: %s\n", r.Question)
		fmt.Printf("   A: %s\n\n", r.Answer)
	}
}
