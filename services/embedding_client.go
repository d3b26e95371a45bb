package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"property-ingest/utils"
)

// statusError is a non-2xx reply from the embedding service.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint.
type HTTPEmbedder struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Client     *http.Client
	Timeout    time.Duration
	Retry      *utils.RetryConfig
}

// NewHTTPEmbedder creates an embedder with a per-call timeout and
// exponential back-off on transport errors and 5xx replies.
func NewHTTPEmbedder(baseURL, apiKey, model string, dims int, timeout time.Duration, retries int, logger *utils.Logger) *HTTPEmbedder {
	return &HTTPEmbedder{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		Dimensions: dims,
		Client:     &http.Client{},
		Timeout:    timeout,
		Retry: &utils.RetryConfig{
			MaxAttempts: retries,
			BaseDelay:   500 * time.Millisecond,
			Logger:      logger,
			Retryable: func(err error) bool {
				var se *statusError
				if errors.As(err, &se) {
					return se.code >= 500 || se.code == http.StatusTooManyRequests
				}
				return true
			},
		},
	}
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: h.Model, Input: text, Dimensions: h.Dimensions})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}

	var vec []float32
	err = h.Retry.Do(ctx, "embedding request", func(ctx context.Context) error {
		if h.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.Timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/embeddings", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("embedding: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if h.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+h.APIKey)
		}

		resp, err := h.Client.Do(req)
		if err != nil {
			return fmt.Errorf("embedding: request: %w", err)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("embedding: %w", &statusError{code: resp.StatusCode, body: truncate(string(body), 200)})
		}

		var decoded embeddingResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("embedding: decode: %w", err)
		}
		if len(decoded.Data) == 0 {
			return fmt.Errorf("embedding: response has no data")
		}
		vec = decoded.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
