package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// flakyProvider fails a fixed number of times before succeeding.
type flakyProvider struct {
	failures int
	calls    int
	err      error
}

func (p *flakyProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &Response{Content: "done"}, nil
}

func (p *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return make([][]float32, len(texts)), nil
}

func (p *flakyProvider) Name() string { return "flaky" }

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestRetryProvider_RecoversFromTransientError(t *testing.T) {
	inner := &flakyProvider{failures: 2, err: fmt.Errorf("backend: 503 Service Unavailable")}
	r := NewRetryProvider(inner, fastRetryConfig(3))

	resp, err := r.Complete(context.Background(), &Prompt{}, nil)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if resp.Content != "done" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetryProvider_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: fmt.Errorf("backend: 500 Internal Server Error")}
	r := NewRetryProvider(inner, fastRetryConfig(2))

	_, err := r.Embed(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", inner.calls)
	}
}

func TestRetryProvider_NonRetryableStopsImmediately(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: fmt.Errorf("backend: 401 Unauthorized")}
	r := NewRetryProvider(inner, fastRetryConfig(5))

	_, err := r.Complete(context.Background(), &Prompt{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("client error should not be retried, got %d calls", inner.calls)
	}
}

func TestRetryProvider_RespectsCancelledContext(t *testing.T) {
	inner := &flakyProvider{failures: 100, err: fmt.Errorf("backend: 503")}
	r := NewRetryProvider(inner, fastRetryConfig(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Embed(ctx, []string{"x"})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"rate_limit", errors.New("429 Too Many Requests"), true},
		{"server", errors.New("502 Bad Gateway"), true},
		{"auth", errors.New("403 Forbidden"), false},
		{"not_found", errors.New("404 model not found"), false},
		{"unknown", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
