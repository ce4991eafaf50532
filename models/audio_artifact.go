package models

import (
	"time"

	"github.com/google/uuid"
)

// AudioArtifact represents a synthesized speech rendition of an answer,
// stored by the storage backend and fetched via a separate request.
type AudioArtifact struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"session_id"`
	LanguageCode string    `json:"language_code"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	StoragePath  string    `json:"storage_path"`
	CreatedAt    time.Time `json:"created_at"`
}
