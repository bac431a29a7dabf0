package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/runlog"
)

// HTTPClient implements Client against a protein language model inference
// service that returns one embedding row per residue.
type HTTPClient struct {
	apiKey   string
	endpoint string
	model    string
	client   *retryablehttp.Client
}

// ResidueEmbeddingRequest is the request body sent to the inference service
type ResidueEmbeddingRequest struct {
	Model     string   `json:"model"`
	Sequences []string `json:"sequences"`
}

// ResidueEmbeddingResponse is the response from the inference service
type ResidueEmbeddingResponse struct {
	Model      string        `json:"model"`
	Embeddings [][][]float32 `json:"embeddings"`
}

// NewHTTPClient creates a new inference service client
func NewHTTPClient(cfg *config.EmbeddingConfig) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &HTTPClient{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   NewRetryableHTTPClient(cfg.MaxRetries, timeout),
	}, nil
}

// NewRetryableHTTPClient returns a retrying client that logs through runlog
func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = timeout
	c.Logger = runlog.Leveled{}
	c.Backoff = retryablehttp.DefaultBackoff
	c.CheckRetry = retryPolicy
	return c
}

// retryPolicy does not retry cancelled requests or 4xx client errors other than 429
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Model returns the pretrained model identifier sent with each request
func (c *HTTPClient) Model() string {
	return c.model
}

// EmbedResidues returns a per-residue embedding matrix for each sequence
func (c *HTTPClient) EmbedResidues(ctx context.Context, seqs []string) ([][][]float32, error) {
	if len(seqs) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(ResidueEmbeddingRequest{
		Model:     c.model,
		Sequences: seqs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp ResidueEmbeddingResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(apiResp.Embeddings) != len(seqs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(seqs), len(apiResp.Embeddings))
	}
	for i, emb := range apiResp.Embeddings {
		if len(emb) != len(seqs[i]) {
			return nil, fmt.Errorf("sequence %d: expected %d residue rows, got %d", i, len(seqs[i]), len(emb))
		}
	}

	return apiResp.Embeddings, nil
}
