// Package openai is the production embedding provider: an OpenAI-compatible
// embeddings client that also understands Ollama-native response shapes.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"policyrag/internal/domain"
)

// Client calls a remote /embeddings endpoint. It implements domain.Embedder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	dimension  int
	client     *http.Client
	maxRetries int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewClient creates an embeddings client. A missing API key is a
// configuration error surfaced here, not a condition checked per call.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 32
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  batch,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the vector dimension, learned from the first response.
func (c *Client) Dimension() int { return c.dimension }

// Encode embeds texts in request batches, preserving input order. Any
// failure aborts the whole call; partial results are never returned.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.encodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	type reqBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		data, _ := json.Marshal(reqBody{Input: texts, Model: c.model})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, ctx.Err())
			}
			lastErr = err
			if err := c.backoff(ctx, attempt, ""); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			retryAfter := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			if err := c.backoff(ctx, attempt, retryAfter); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: embeddings request failed: %s", domain.ErrProviderFailure, resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if err := c.backoff(ctx, attempt, ""); err != nil {
				return nil, err
			}
			continue
		}
		vecs, err := c.decodeResponse(payload, len(texts))
		if err != nil {
			lastErr = err
			if err := c.backoff(ctx, attempt, ""); err != nil {
				return nil, err
			}
			continue
		}
		return vecs, nil
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, lastErr)
}

// decodeResponse accepts the OpenAI-compatible shape first, then the
// Ollama-native one.
func (c *Client) decodeResponse(payload []byte, want int) ([][]float32, error) {
	var openaiOut struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) == want {
		vecs := make([][]float32, want)
		for _, d := range openaiOut.Data {
			if d.Index < 0 || d.Index >= want || len(d.Embedding) == 0 {
				vecs = nil
				break
			}
			vecs[d.Index] = d.Embedding
		}
		if vecs != nil {
			return c.checkDims(vecs)
		}
	}
	var ollamaOut struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embeddings) == want {
		return c.checkDims(ollamaOut.Embeddings)
	}
	return nil, fmt.Errorf("no embeddings in response (%d bytes)", len(payload))
}

func (c *Client) checkDims(vecs [][]float32) ([][]float32, error) {
	for _, v := range vecs {
		if c.dimension == 0 {
			c.dimension = len(v)
		}
		if len(v) != c.dimension {
			return nil, fmt.Errorf("embedding dim %d, want %d", len(v), c.dimension)
		}
	}
	return vecs, nil
}

// backoff sleeps before the next attempt, honoring a Retry-After header
// when the server sent one. Skips the sleep after the final attempt.
func (c *Client) backoff(ctx context.Context, attempt int, retryAfter string) error {
	if attempt >= c.maxRetries {
		return nil
	}
	d := retryDelay(attempt)
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			d = time.Duration(secs) * time.Second
		}
	}
	if err := sleepCtx(ctx, d); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
