package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Transcriber converts spoken audio into the raw structured transcription
// record emitted by the speech model. Parsing and validating that record is
// the caller's job; the transcriber only moves bytes.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// transcribePrompt asks the model for the same three-field record the text
// normalization path produces, so both inputs converge on one parser.
const transcribePrompt = `Convert the speech in the attached audio into English text.
Return a single JSON object with exactly these three fields and nothing else:
{"language": "the original audio language name in English", "text": "the English translation of what was said", "language_code": "the BCP-47 code of the original language, e.g. hi, ta, en"}`

// GeminiTranscriber implements Transcriber with the Gemini SDK, sending the
// audio as an inline blob part.
type GeminiTranscriber struct {
	client *genai.Client
	model  string
}

// NewGeminiTranscriber creates a transcriber from the environment.
// GEMINI_API_KEY is required; GEMINI_SPEECH_MODEL overrides the model name.
func NewGeminiTranscriber(ctx context.Context) (*GeminiTranscriber, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_SPEECH_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &GeminiTranscriber{client: client, model: model}, nil
}

// Transcribe sends the audio to the speech model and returns its raw response text
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	model := t.client.GenerativeModel(t.model)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.Text(transcribePrompt),
		genai.Blob{MIMEType: mimeType, Data: audio},
	)
	if err != nil {
		return "", fmt.Errorf("speech transcription failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("speech model returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	result := b.String()
	if result == "" {
		return "", fmt.Errorf("speech model returned empty content")
	}

	return result, nil
}

// Close releases the underlying SDK client
func (t *GeminiTranscriber) Close() error {
	return t.client.Close()
}
