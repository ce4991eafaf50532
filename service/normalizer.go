package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sahayak-backend/llm"
	"sahayak-backend/models"
)

// ErrNormalizationParse indicates the language-detection record returned by
// the generative or speech capability did not match the required shape. This
// is a structural failure, never retried and never papered over with a
// guessed language.
var ErrNormalizationParse = errors.New("malformed language detection record")

const normalizePromptFmt = `Detect the language of the user message below and translate the message into English.
Return a single JSON object with exactly these three fields and nothing else:
{"language": "the language name in English", "text": "the English translation of the message", "language_code": "the BCP-47 code of the detected language, e.g. hi, ta, en"}

User message:
%s`

// Normalizer converts raw input, typed text or recorded audio, into a
// canonical English query with the detected source language attached.
type Normalizer struct {
	completer   llm.Completer
	transcriber llm.Transcriber
}

// NewNormalizer creates a normalizer over the given capabilities
func NewNormalizer(completer llm.Completer, transcriber llm.Transcriber) *Normalizer {
	return &Normalizer{
		completer:   completer,
		transcriber: transcriber,
	}
}

// detectionRecord is the only accepted shape for language detection output
type detectionRecord struct {
	Language     string `json:"language"`
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

// NormalizeText detects the language of typed input and translates it to a
// canonical English query.
func (n *Normalizer) NormalizeText(ctx context.Context, text string) (models.Query, error) {
	raw, err := n.completer.CompleteJSON(ctx, fmt.Sprintf(normalizePromptFmt, text))
	if err != nil {
		return models.Query{}, fmt.Errorf("language detection failed: %w", err)
	}

	record, err := parseDetectionRecord(raw)
	if err != nil {
		return models.Query{}, err
	}

	return models.Query{
		RawInput:      text,
		Language:      record.Language,
		LanguageCode:  record.LanguageCode,
		CanonicalText: record.Text,
	}, nil
}

// NormalizeAudio transcribes spoken input and produces the same canonical
// query shape as NormalizeText.
func (n *Normalizer) NormalizeAudio(ctx context.Context, audio []byte, mimeType string) (models.Query, error) {
	raw, err := n.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return models.Query{}, fmt.Errorf("%w: %v", ErrNormalizationParse, err)
	}

	record, err := parseDetectionRecord(raw)
	if err != nil {
		return models.Query{}, err
	}

	return models.Query{
		RawInput:      record.Text,
		Language:      record.Language,
		LanguageCode:  record.LanguageCode,
		CanonicalText: record.Text,
	}, nil
}

// parseDetectionRecord validates the model output strictly: one JSON object,
// exactly the three required fields, all non-empty. Markdown fences, extra
// fields, trailing values or any other deviation is rejected outright.
func parseDetectionRecord(raw string) (detectionRecord, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var record detectionRecord
	if err := dec.Decode(&record); err != nil {
		return detectionRecord{}, fmt.Errorf("%w: %v", ErrNormalizationParse, err)
	}
	if dec.More() {
		return detectionRecord{}, fmt.Errorf("%w: trailing data after record", ErrNormalizationParse)
	}
	if record.Language == "" || record.Text == "" || record.LanguageCode == "" {
		return detectionRecord{}, fmt.Errorf("%w: missing required field", ErrNormalizationParse)
	}

	return record, nil
}
