package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Synthesizer converts answer text into spoken audio in the given language.
// It is purely a consumer of localized answers, not part of the core pipeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, languageCode string) ([]byte, string, error)
}

const ttsAPI = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleSynthesizer implements Synthesizer against the Google Cloud
// Text-to-Speech REST API.
type GoogleSynthesizer struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewGoogleSynthesizer creates a synthesizer from the environment.
// TTS_API_KEY is required (falls back to GEMINI_API_KEY); TTS_API_URL
// overrides the endpoint.
func NewGoogleSynthesizer() (*GoogleSynthesizer, error) {
	apiKey := os.Getenv("TTS_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("TTS_API_KEY not set")
	}

	apiURL := os.Getenv("TTS_API_URL")
	if apiURL == "" {
		apiURL = ttsAPI
	}

	return &GoogleSynthesizer{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Synthesize returns MP3 audio bytes for the given text along with the MIME type
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text string, languageCode string) ([]byte, string, error) {
	reqBody := map[string]interface{}{
		"input":       map[string]string{"text": text},
		"voice":       map[string]string{"languageCode": languageCode},
		"audioConfig": map[string]string{"audioEncoding": "MP3"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("TTS API error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, "", fmt.Errorf("failed to decode response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(apiResp.AudioContent)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode audio content: %w", err)
	}

	return audio, "audio/mpeg", nil
}
