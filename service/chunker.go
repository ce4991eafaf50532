package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"sahayak-backend/models"
)

const (
	// DefaultChunkSize is the window width in characters
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many characters consecutive chunks share
	DefaultChunkOverlap = 100
)

// SplitDocument slides a window of chunkSize characters across the document
// content, advancing by chunkSize-overlap each step. The final chunk takes
// whatever remains, regardless of length. Splitting is purely positional; no
// sentence or token boundaries are respected, which embedding models tolerate.
//
// The split is deterministic: identical (document, chunkSize, overlap) inputs
// always produce identical chunk boundaries and ids.
func SplitDocument(doc *models.Document, chunkSize, overlap int) ([]models.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d", overlap)
	}

	// Characters, not bytes: scheme text is frequently Devanagari
	runes := []rune(doc.Content)
	step := chunkSize - overlap

	var chunks []models.Chunk
	for position, start := 0, 0; start < len(runes); position, start = position+1, start+step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, models.Chunk{
			ID:         chunkID(doc.ID.String(), position),
			DocumentID: doc.ID,
			Text:       string(runes[start:end]),
			Position:   position,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// chunkID derives a stable chunk id from the parent document and position
func chunkID(documentID string, position int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, position)))
	return hex.EncodeToString(sum[:16])
}
