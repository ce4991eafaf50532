package service

import (
	"bytes"
	"context"
	"fmt"

	"sahayak-backend/llm"
	"sahayak-backend/models"
	"sahayak-backend/repository"
	"sahayak-backend/storage"

	"github.com/google/uuid"
)

// SpeechService synthesizes localized answers to audio and stores the result
// as a retrievable artifact. It consumes answers; it never feeds back into
// the answer pipeline.
type SpeechService struct {
	synthesizer llm.Synthesizer
	storage     storage.Storage
	artifacts   *repository.ArtifactRepository
}

// NewSpeechService creates a new speech service
func NewSpeechService(synthesizer llm.Synthesizer, store storage.Storage, artifacts *repository.ArtifactRepository) *SpeechService {
	return &SpeechService{
		synthesizer: synthesizer,
		storage:     store,
		artifacts:   artifacts,
	}
}

// SpeakAnswer synthesizes the answer and stores the audio, returning the
// artifact record whose id the caller uses for the follow-up fetch
func (s *SpeechService) SpeakAnswer(ctx context.Context, sessionID string, answer models.AnswerLocalized) (*models.AudioArtifact, error) {
	audio, mimeType, err := s.synthesizer.Synthesize(ctx, answer.Text, answer.LanguageCode)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	artifactID := uuid.New()
	storagePath, err := s.storage.Upload(ctx, artifactID, mimeType, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to store audio artifact: %w", err)
	}

	artifact := &models.AudioArtifact{
		ID:           artifactID,
		SessionID:    sessionID,
		LanguageCode: answer.LanguageCode,
		MimeType:     mimeType,
		Size:         int64(len(audio)),
		StoragePath:  storagePath,
	}

	if err := s.artifacts.Create(ctx, artifact); err != nil {
		// Keep storage and database consistent
		s.storage.Delete(ctx, storagePath)
		return nil, fmt.Errorf("failed to save artifact record: %w", err)
	}

	return artifact, nil
}
