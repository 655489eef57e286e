package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/quarrylabs/quarry/internal/chunk"
	"github.com/quarrylabs/quarry/internal/config"
	"github.com/quarrylabs/quarry/internal/index"
	"github.com/quarrylabs/quarry/internal/llm"
	"github.com/quarrylabs/quarry/internal/llm/openai"
	temporalmod "github.com/quarrylabs/quarry/internal/temporal"
	"github.com/quarrylabs/quarry/internal/vector"
	"github.com/quarrylabs/quarry/internal/vector/memory"
	"github.com/quarrylabs/quarry/internal/vector/qdrant"
)

func main() {
	_ = godotenv.Load()

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Build LLM provider via factory (supports offline operation).
	factory := llm.NewFactory()
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
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
		log.Fatalf("creating LLM provider: %v", err)
	}

	ctx := context.Background()
	var repo vector.Repository
	if cfg.Vector.Type == "memory" {
		repo = memory.New()
	} else {
		repo, err = qdrant.New(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Embedding.Dimensions)
		if err != nil {
			log.Fatalf("connecting to qdrant: %v", err)
		}
	}
	defer repo.Close()

	reindexer := index.NewReindexer(index.ReindexerConfig{
		Root:      cfg.Docs.Root,
		Languages: cfg.Docs.Languages,
	}, chunk.NewLineChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap),
		vector.NewEmbedder(provider, cfg.Embedding.Dimensions), repo)

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Reindexer: reindexer,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
}
