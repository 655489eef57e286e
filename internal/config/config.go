// Package config loads Quarry configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Search    SearchConfig    `mapstructure:"search"`
	Docs      DocsConfig      `mapstructure:"docs"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type EmbeddingConfig struct {
	Model         string `mapstructure:"model"`
	FallbackModel string `mapstructure:"fallback_model"`
	Dimensions    int    `mapstructure:"dimensions"`
}

type ChunkingConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	Overlap   int `mapstructure:"overlap"`
}

type VectorConfig struct {
	Type       string `mapstructure:"type"` // "qdrant" or "memory"
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type SearchConfig struct {
	TopK                int     `mapstructure:"top_k"`
	MaxTopK             int     `mapstructure:"max_top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	Preprocess          string  `mapstructure:"preprocess"` // "simple" or "llm"
}

type DocsConfig struct {
	Root      string   `mapstructure:"root"`
	Languages []string `mapstructure:"languages"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty; embeddings degrade to zero vectors", c.LLM.Provider))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}

	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold > 1 {
		warnings = append(warnings, fmt.Sprintf("similarity threshold %.2f is outside [0.0, 1.0]", c.Search.SimilarityThreshold))
	}

	if c.Search.TopK > c.Search.MaxTopK && c.Search.MaxTopK > 0 {
		warnings = append(warnings, fmt.Sprintf("search top_k %d exceeds max_top_k %d", c.Search.TopK, c.Search.MaxTopK))
	}

	if c.Chunking.Overlap >= c.Chunking.ChunkSize && c.Chunking.ChunkSize > 0 {
		warnings = append(warnings, fmt.Sprintf("chunk overlap %d is not smaller than chunk size %d", c.Chunking.Overlap, c.Chunking.ChunkSize))
	}

	if c.Embedding.Dimensions <= 0 {
		warnings = append(warnings, fmt.Sprintf("embedding dimensions %d is not positive", c.Embedding.Dimensions))
	}

	if len(c.Docs.Languages) == 0 {
		warnings = append(warnings, "no document languages configured")
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.max_tokens", 800)

	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.fallback_model", "text-embedding-ada-002")
	v.SetDefault("embedding.dimensions", 1536)

	v.SetDefault("chunking.chunk_size", 300)
	v.SetDefault("chunking.overlap", 50)

	v.SetDefault("vector.type", "qdrant")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "support_docs")

	v.SetDefault("search.top_k", 15)
	v.SetDefault("search.max_top_k", 30)
	v.SetDefault("search.similarity_threshold", 0.3)
	v.SetDefault("search.preprocess", "simple")

	v.SetDefault("docs.root", "docs")
	v.SetDefault("docs.languages", []string{"en", "ru"})

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "quarry-reindex")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from file and environment. An empty path loads
// defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("QUARRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
