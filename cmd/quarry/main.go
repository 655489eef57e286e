package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/chunk"
	"github.com/quarrylabs/quarry/internal/config"
	"github.com/quarrylabs/quarry/internal/index"
	"github.com/quarrylabs/quarry/internal/llm"
	"github.com/quarrylabs/quarry/internal/llm/openai"
	"github.com/quarrylabs/quarry/internal/observability"
	"github.com/quarrylabs/quarry/internal/search"
	"github.com/quarrylabs/quarry/internal/server"
	"github.com/quarrylabs/quarry/internal/vector"
	"github.com/quarrylabs/quarry/internal/vector/memory"
	"github.com/quarrylabs/quarry/internal/vector/qdrant"
)

const version = "0.1.0"

func main() {
	// Pick up QUARRY_* variables from a local .env if present.
	_ = godotenv.Load()

	var (
		configPath string
		jsonOutput bool
	)

	rootCmd := &cobra.Command{
		Use:   "quarry",
		Short: "Multilingual document indexing and retrieval for support bots",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (defaults + env when empty)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	var indexRoot string
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Reindex the document tree into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), configPath, indexRoot, jsonOutput)
		},
	}
	indexCmd.Flags().StringVar(&indexRoot, "root", "", "Document tree root (overrides config)")

	var (
		searchLang string
		searchType string
		topK       int
	)
	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), configPath, args[0], searchLang, searchType, topK, jsonOutput)
		},
	}
	searchCmd.Flags().StringVar(&searchLang, "language", "", "Filter by language (en, ru)")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by document type")
	searchCmd.Flags().IntVar(&topK, "top-k", 0, "Result count (0 uses the configured default)")

	var contextLang string
	contextCmd := &cobra.Command{
		Use:   "context QUERY",
		Short: "Build the LLM context string for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext(cmd.Context(), configPath, args[0], contextLang, topK, jsonOutput)
		},
	}
	contextCmd.Flags().StringVar(&contextLang, "language", "en", "Query language")
	contextCmd.Flags().IntVar(&topK, "top-k", 0, "Chunks per language (0 uses the configured default)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vector store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), configPath, jsonOutput)
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println("  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println("  none           (run offline with zero-vector embeddings)")
			fmt.Println()
			fmt.Println("Configure in quarry.yaml or via environment:")
			fmt.Println("  QUARRY_LLM_PROVIDER=deepseek")
			fmt.Println("  QUARRY_LLM_API_KEY=sk-...")
			fmt.Println("  QUARRY_LLM_MODEL=deepseek-chat")
		},
	}

	var serveAddr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, stats and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, serveAddr)
		},
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")

	rootCmd.AddCommand(indexCmd, searchCmd, contextCmd, statsCmd, providersCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired pipeline shared by the commands.
type app struct {
	cfg      *config.Config
	provider llm.Provider
	embedder *vector.Embedder
	repo     vector.Repository
	chunker  *chunk.LineChunker
}

func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	setupLogging(cfg)

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	repo, err := buildRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		provider: provider,
		embedder: vector.NewEmbedder(provider, cfg.Embedding.Dimensions),
		repo:     repo,
		chunker:  chunk.NewLineChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap),
	}, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		slog.Warn("closing vector store", "error", err)
	}
}

func (a *app) reindexer() *index.Reindexer {
	return index.NewReindexer(index.ReindexerConfig{
		Root:      a.cfg.Docs.Root,
		Languages: a.cfg.Docs.Languages,
	}, a.chunker, a.embedder, a.repo)
}

func (a *app) searcher() *search.Searcher {
	var pre search.Preprocessor = search.SimplePreprocessor{}
	if a.cfg.Search.Preprocess == "llm" && a.provider != nil {
		pre = search.NewLLMPreprocessor(a.provider)
	}
	return search.NewSearcher(a.repo, a.embedder, pre, search.Config{
		Languages: a.cfg.Docs.Languages,
		TopK:      a.cfg.Search.TopK,
		MaxTopK:   a.cfg.Search.MaxTopK,
		Threshold: float32(a.cfg.Search.SimilarityThreshold),
	})
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	factory := llm.NewFactory()
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
	// All OpenAI-compatible providers
	for _, p := range []struct{ name, url string }{
		{"deepseek", llm.KnownProviders["deepseek"]},
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"together", llm.KnownProviders["together"]},
		{"custom", ""},
	} {
		p := p
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}

	provider, err := factory.Create(llm.ProviderConfig{
		Provider:   cfg.LLM.Provider,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		EmbedModel: cfg.Embedding.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	if provider == nil {
		slog.Warn("running without LLM provider, embeddings degrade to zero vectors")
	}
	return provider, nil
}

func buildRepository(ctx context.Context, cfg *config.Config) (vector.Repository, error) {
	switch cfg.Vector.Type {
	case "memory":
		return memory.New(), nil
	case "", "qdrant":
		repo, err := qdrant.New(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Vector.Type)
	}
}

func runIndex(ctx context.Context, configPath, root string, jsonOutput bool) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if root != "" {
		a.cfg.Docs.Root = root
	}

	report, err := a.reindexer().Reindex(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	fmt.Print(index.FormatReport(report))
	return nil
}

func runSearch(ctx context.Context, configPath, query, language, docType string, topK int, jsonOutput bool) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.searcher().Search(ctx, query, vector.Filter{
		Language:     language,
		DocumentType: docType,
	}, topK)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	if len(results) == 0 {
		fmt.Println("No results above the similarity threshold.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %s (%s, %s)\n", i+1, r.Score, r.ID,
			r.Metadata["language"], r.Metadata["document_type"])
		fmt.Printf("    %s\n", r.Content)
	}
	return nil
}

func runContext(ctx context.Context, configPath, query, language string, topK int, jsonOutput bool) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.searcher().ContextWithFallback(ctx, query, language, topK)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"context": out})
	}
	fmt.Println(out)
	return nil
}

func runStats(ctx context.Context, configPath string, jsonOutput bool) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.repo.Count(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(server.StatsResponse{TotalEntries: count})
	}
	fmt.Printf("Stored chunks: %d\n", count)
	return nil
}

func runServe(ctx context.Context, configPath, addr string) error {
	a, err := buildApp(ctx, configPath)
	if err != nil {
		return err
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "quarry",
		ServiceVersion: version,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SampleRate:     1.0,
	})
	if err != nil {
		return err
	}

	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	g := server.NewGracefulServer(&server.HealthConfig{Version: version}, nil)
	g.Health.RegisterCheck("vector-store", server.QdrantHealthChecker(a.repo))
	g.Health.RegisterCheck("llm", server.LLMHealthChecker(a.cfg.LLM.Provider, nil))
	g.Health.RegisterStats(a.repo)

	tracingHook := server.TracingShutdownHook(tp.Shutdown)
	g.RegisterHook(tracingHook.Name, tracingHook.Priority, tracingHook.Fn)
	storeHook := server.VectorStoreShutdownHook(a.repo.Close)
	g.RegisterHook(storeHook.Name, storeHook.Priority, storeHook.Fn)

	if err := g.Start(addr); err != nil {
		return err
	}
	slog.Info("serving", "addr", addr)
	g.Wait()
	return nil
}
