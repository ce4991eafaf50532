package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents one scraped scheme page from the corpus.
// Documents are immutable once ingested.
type Document struct {
	ID        uuid.UUID         `json:"id"`
	Content   string            `json:"content"`
	SourceURL string            `json:"source_url"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Chunk is a bounded, possibly overlapping substring of a document and the
// unit of indexing. Embedding is nil until the build phase embeds the chunk.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Text       string    `json:"text"`
	Position   int       `json:"position"`
	Embedding  []float64 `json:"embedding,omitempty"`
}

// RetrievalResult pairs an indexed chunk with its similarity score for one query.
type RetrievalResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
