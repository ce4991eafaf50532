package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"
)

// Embedder converts text into a fixed-dimension vector. The same embedder is
// used for corpus chunks at build time and for queries at request time; mixing
// models would make the similarity scores meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

const (
	embeddingAPI = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"

	// EmbeddingDimensions is the fixed output dimensionality requested from
	// the provider and enforced by the vector index.
	EmbeddingDimensions = 768
)

// GeminiEmbedder implements Embedder against the Gemini embedContent API
type GeminiEmbedder struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewGeminiEmbedder creates an embedder from the environment.
// GEMINI_API_KEY is required; GEMINI_EMBEDDING_URL overrides the endpoint.
func NewGeminiEmbedder() (*GeminiEmbedder, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	apiURL := os.Getenv("GEMINI_EMBEDDING_URL")
	if apiURL == "" {
		apiURL = embeddingAPI
	}

	return &GeminiEmbedder{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type embeddingRequest struct {
	Model                string       `json:"model"`
	Content              contentInput `json:"content"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

type contentInput struct {
	Parts []partInput `json:"parts"`
}

type partInput struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the L2-normalized embedding of the given text
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := embeddingRequest{
		Model: "models/gemini-embedding-001",
		Content: contentInput{
			Parts: []partInput{{Text: text}},
		},
		OutputDimensionality: EmbeddingDimensions,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp embeddingResponse
			err := json.NewDecoder(resp.Body).Decode(&apiResp)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			return normalize(apiResp.Embedding.Values), nil
		}
		resp.Body.Close()

		// 4xx other than rate limiting means the request itself is bad
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("API error: %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", maxRetries, lastErr)
}

// normalize scales a vector to unit length so cosine similarity reduces to a
// dot product
func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
