// Package llm abstracts the chat-completion and embedding backends the
// retrieval pipeline talks to.
package llm

import "context"

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion. The search layer
	// uses this for LLM-backed query preprocessing.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns one embedding vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider identifier (e.g. "openai", "deepseek").
	Name() string
}

// RequestOptions tune a single completion call. Nil fields use the
// provider's defaults.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
}
