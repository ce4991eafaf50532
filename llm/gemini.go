package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Completer is the single generative capability. Normalization, rewriting,
// answering, and translation are all callers of this interface with different
// prompts; none of them gets a special-cased client.
type Completer interface {
	// Complete generates free-form text for a prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteJSON generates text with the provider's JSON response mode
	// enabled, for callers that parse the output as a structured record.
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

const (
	generationAPI  = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	maxRetries     = 3
	initialBackoff = time.Second
)

// GeminiCompleter implements Completer against the Gemini generateContent API
type GeminiCompleter struct {
	apiURL      string
	apiKey      string
	temperature float64
	client      *http.Client
}

// NewGeminiCompleter creates a completer from the environment.
// GEMINI_API_KEY is required; GEMINI_GENERATION_URL overrides the endpoint.
func NewGeminiCompleter() (*GeminiCompleter, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	apiURL := os.Getenv("GEMINI_GENERATION_URL")
	if apiURL == "" {
		apiURL = generationAPI
	}

	return &GeminiCompleter{
		apiURL:      apiURL,
		apiKey:      apiKey,
		temperature: 0.2,
		client:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Complete generates free-form text for a prompt
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, "")
}

// CompleteJSON generates text with JSON response mode enabled
func (c *GeminiCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, "application/json")
}

func (c *GeminiCompleter) generate(ctx context.Context, prompt string, responseMimeType string) (string, error) {
	generationConfig := map[string]interface{}{
		"temperature": c.temperature,
	}
	if responseMimeType != "" {
		generationConfig["responseMimeType"] = responseMimeType
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": generationConfig,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, retryable, err := c.doGenerate(ctx, jsonData)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", maxRetries, lastErr)
}

// doGenerate performs one generateContent call. The second return value
// reports whether the failure is transient (network error, rate limit, 5xx)
// and therefore worth retrying.
func (c *GeminiCompleter) doGenerate(ctx context.Context, jsonData []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("API error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
	}
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.PromptFeedback.BlockReason != "" {
		return "", false, fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}
	if len(apiResp.Candidates) == 0 {
		return "", false, fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Printf("Warning: candidate %d finished with reason: %s", i, candidate.FinishReason)
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	result := responseText.String()
	if result == "" {
		return "", false, fmt.Errorf("API returned empty content")
	}

	return result, false, nil
}
