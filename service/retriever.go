package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"sahayak-backend/index"
	"sahayak-backend/llm"
	"sahayak-backend/models"
)

// ErrRetrieval indicates a provider failure while embedding the query or
// searching the index
var ErrRetrieval = errors.New("retrieval failed")

const (
	// DefaultContextBudget caps the assembled context string, in bytes
	DefaultContextBudget = 3000
	// DefaultScoreThreshold discards chunks whose similarity is too low to
	// ground an answer; a corpus where nothing clears it yields the sentinel
	DefaultScoreThreshold = 0.25

	chunkSeparator = "\n\n"
)

// RetrieverConfig tunes retrieval; zero values select the defaults
type RetrieverConfig struct {
	TopK           int
	ContextBudget  int
	ScoreThreshold float64
}

// Retriever embeds a standalone query, searches the vector index, and
// assembles the bounded context string handed to the answer generator.
type Retriever struct {
	embedder llm.Embedder
	idx      *index.VectorIndex
	cfg      RetrieverConfig
}

// NewRetriever creates a retriever over the embedding capability and index
func NewRetriever(embedder llm.Embedder, idx *index.VectorIndex, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = index.DefaultK
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = DefaultScoreThreshold
	}

	return &Retriever{
		embedder: embedder,
		idx:      idx,
		cfg:      cfg,
	}
}

// Retrieve returns the context string for a standalone query. An empty return
// value means nothing relevant was found; that is an expected outcome, not an
// error, and callers short-circuit on it instead of generating.
func (r *Retriever) Retrieve(ctx context.Context, standaloneQuery string) (string, error) {
	vector, err := r.embedder.Embed(ctx, standaloneQuery)
	if err != nil {
		return "", fmt.Errorf("%w: query embedding: %v", ErrRetrieval, err)
	}

	results, err := r.idx.Query(vector, r.cfg.TopK)
	if err != nil {
		if errors.Is(err, index.ErrNotReady) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	return r.assembleContext(results), nil
}

// assembleContext concatenates surviving chunk texts in ranked order,
// deduplicated by chunk id, up to the byte budget. When the budget runs out
// it is the lowest-ranked chunk that gets truncated or dropped.
func (r *Retriever) assembleContext(results []models.RetrievalResult) string {
	var b strings.Builder
	seen := make(map[string]bool)

	for _, result := range results {
		if result.Score <= r.cfg.ScoreThreshold {
			continue
		}
		if seen[result.Chunk.ID] {
			continue
		}
		seen[result.Chunk.ID] = true

		text := result.Chunk.Text
		needed := len(text)
		if b.Len() > 0 {
			needed += len(chunkSeparator)
		}

		if b.Len()+needed <= r.cfg.ContextBudget {
			if b.Len() > 0 {
				b.WriteString(chunkSeparator)
			}
			b.WriteString(text)
			continue
		}

		remaining := r.cfg.ContextBudget - b.Len()
		if b.Len() > 0 {
			remaining -= len(chunkSeparator)
		}
		if remaining <= 0 {
			break
		}
		if b.Len() > 0 {
			b.WriteString(chunkSeparator)
		}
		b.WriteString(truncateAtRune(text, remaining))
		break
	}

	return b.String()
}

// truncateAtRune cuts a string to at most max bytes without splitting a rune
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
