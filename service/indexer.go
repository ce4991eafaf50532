package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sahayak-backend/index"
	"sahayak-backend/llm"
	"sahayak-backend/models"
)

// ErrIngestion indicates malformed corpus input. Raised during the startup
// build phase, where it is fatal; the process must not serve over a corpus it
// could not ingest.
var ErrIngestion = errors.New("malformed corpus input")

// IndexerConfig tunes the build phase; zero values select the defaults
type IndexerConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// BuildCorpusIndex chunks every document, embeds every chunk, and builds the
// vector index. It returns the number of indexed chunks. Serving is gated on
// this returning successfully; requests arriving earlier see ErrNotReady from
// the index.
//
// An empty corpus is legal and builds an empty index (every query then takes
// the no-answer path); a document with blank content is not.
func BuildCorpusIndex(ctx context.Context, docs []*models.Document, embedder llm.Embedder, idx *index.VectorIndex, cfg IndexerConfig) (int, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}

	start := time.Now()

	var chunks []models.Chunk
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			return 0, fmt.Errorf("%w: document %s has no content", ErrIngestion, doc.ID)
		}
		if doc.SourceURL == "" {
			return 0, fmt.Errorf("%w: document %s has no source URL", ErrIngestion, doc.ID)
		}

		docChunks, err := SplitDocument(doc, cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return 0, fmt.Errorf("%w: splitting document %s: %v", ErrIngestion, doc.ID, err)
		}

		for i := range docChunks {
			embedding, err := embedder.Embed(ctx, docChunks[i].Text)
			if err != nil {
				return 0, fmt.Errorf("embedding chunk %s: %w", docChunks[i].ID, err)
			}
			docChunks[i].Embedding = embedding
		}

		chunks = append(chunks, docChunks...)
	}

	if err := idx.Build(chunks); err != nil {
		return 0, err
	}

	log.Printf("Indexed %d chunks from %d documents in %v", len(chunks), len(docs), time.Since(start))
	return len(chunks), nil
}
