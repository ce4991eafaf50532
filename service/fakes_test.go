package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeCompleter serves queued responses and records every prompt it saw.
type fakeCompleter struct {
	mu                sync.Mutex
	completeResponses []string
	completeErr       error
	jsonResponses     []string
	jsonErr           error
	completePrompts   []string
	jsonPrompts       []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.completePrompts = append(f.completePrompts, prompt)
	if f.completeErr != nil {
		return "", f.completeErr
	}
	if len(f.completeResponses) == 0 {
		return "", errors.New("unexpected Complete call")
	}
	resp := f.completeResponses[0]
	f.completeResponses = f.completeResponses[1:]
	return resp, nil
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.jsonPrompts = append(f.jsonPrompts, prompt)
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	if len(f.jsonResponses) == 0 {
		return "", errors.New("unexpected CompleteJSON call")
	}
	resp := f.jsonResponses[0]
	f.jsonResponses = f.jsonResponses[1:]
	return resp, nil
}

func (f *fakeCompleter) completeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.completePrompts)
}

// fakeEmbedder maps exact texts to vectors, with an optional fallback for
// everything else.
type fakeEmbedder struct {
	vectors  map[string][]float64
	fallback []float64
	err      error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return nil, errors.New("no vector configured for text")
}

// fakeTranscriber returns one canned transcription record.
type fakeTranscriber struct {
	response string
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// detectionJSON builds a valid language detection record.
func detectionJSON(language, code, text string) string {
	return fmt.Sprintf(`{"language": %q, "text": %q, "language_code": %q}`, language, text, code)
}
