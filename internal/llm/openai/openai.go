// Package openai implements llm.Provider for OpenAI-compatible APIs
// (OpenAI, DeepSeek, Groq, Ollama, vLLM, etc.).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quarrylabs/quarry/internal/llm"
	"github.com/quarrylabs/quarry/internal/observability"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// FallbackEmbedModel is tried once when the configured embedding model
	// is rejected by the backend as unavailable.
	FallbackEmbedModel = "text-embedding-ada-002"
)

// Client implements llm.Provider over the OpenAI wire format.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	embedModel string
	http       *http.Client
}

// New creates an OpenAI-compatible provider.
func New(apiKey, model, baseURL, embedModel string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		embedModel: embedModel,
		http:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Name() string { return "openai" }

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	ctx, span := observability.StartLLMSpan(ctx, c.Name(), c.model)
	defer span.End()
	start := time.Now()

	var msgs []map[string]string
	if prompt.SystemPrompt != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": prompt.SystemPrompt})
	}
	for _, m := range prompt.Messages {
		msgs = append(msgs, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	body := map[string]any{
		"model":      c.model,
		"messages":   msgs,
		"max_tokens": 1024,
	}
	if opts != nil {
		if opts.MaxTokens != nil {
			body["max_tokens"] = *opts.MaxTokens
		}
		if opts.Temperature != nil {
			body["temperature"] = *opts.Temperature
		}
		if opts.TopP != nil {
			body["top_p"] = *opts.TopP
		}
		if len(opts.StopSeqs) > 0 {
			body["stop"] = opts.StopSeqs
		}
	}

	respBody, err := c.post(ctx, "/chat/completions", body)
	observability.Metrics().RecordLLMRequest(time.Since(start), err)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Model string `json:"model"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}

	text := ""
	stop := ""
	if len(result.Choices) > 0 {
		text = result.Choices[0].Message.Content
		stop = result.Choices[0].FinishReason
	}

	observability.RecordLLMMetrics(span, result.Usage.PromptTokens, result.Usage.CompletionTokens, time.Since(start))

	return &llm.Response{
		Content:      text,
		Model:        result.Model,
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		StopReason:   stop,
	}, nil
}

// Embed returns one vector per input text. When the configured embedding
// model is rejected as unavailable, the request is retried once with
// FallbackEmbedModel; any other error is surfaced unchanged.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.embedWithModel(ctx, c.embedModel, texts)
	if err != nil && isModelUnavailable(err) && c.embedModel != FallbackEmbedModel {
		return c.embedWithModel(ctx, FallbackEmbedModel, texts)
	}
	return vectors, err
}

func (c *Client) embedWithModel(ctx context.Context, model string, texts []string) ([][]float32, error) {
	respBody, err := c.post(ctx, "/embeddings", map[string]any{
		"model": model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(result.Data), len(texts))
	}

	embeddings := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{status: resp.StatusCode, body: string(respBody)}
	}
	return respBody, nil
}

// apiError preserves the HTTP status so callers can classify failures.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("openai: %d: %s", e.status, e.body)
}

// isModelUnavailable reports whether the backend rejected the requested
// model (as opposed to failing the request for transient reasons).
func isModelUnavailable(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound
}
