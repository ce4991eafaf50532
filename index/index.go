package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"sahayak-backend/models"
)

var (
	// ErrBuild indicates the supplied chunks cannot form a valid index
	ErrBuild = errors.New("vector index build failed")
	// ErrNotReady indicates a query arrived before the index was built
	ErrNotReady = errors.New("vector index not ready")
)

// DefaultK is the number of nearest neighbors returned when the caller does
// not ask for a specific count
const DefaultK = 4

// VectorIndex holds the embedded chunks of one corpus snapshot in memory.
// It is built once at startup and read-only afterwards; Rebuild swaps in a
// new snapshot atomically so concurrent readers never observe a partial
// index.
type VectorIndex struct {
	mu         sync.RWMutex
	chunks     []models.Chunk
	dimensions int
	ready      bool
}

// New creates an empty, not-yet-ready index
func New() *VectorIndex {
	return &VectorIndex{}
}

// Build installs the corpus snapshot. It fails if any chunk lacks an
// embedding or embeddings disagree on dimensionality, and if the index was
// already built (use Rebuild for corpus updates).
func (idx *VectorIndex) Build(chunks []models.Chunk) error {
	snapshot, dims, err := validate(chunks)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.ready {
		return fmt.Errorf("%w: index already built", ErrBuild)
	}

	idx.chunks = snapshot
	idx.dimensions = dims
	idx.ready = true
	return nil
}

// Rebuild validates a new snapshot and swaps it in atomically
func (idx *VectorIndex) Rebuild(chunks []models.Chunk) error {
	snapshot, dims, err := validate(chunks)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.chunks = snapshot
	idx.dimensions = dims
	idx.ready = true
	return nil
}

func validate(chunks []models.Chunk) ([]models.Chunk, int, error) {
	dims := 0
	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return nil, 0, fmt.Errorf("%w: chunk %s has no embedding", ErrBuild, chunk.ID)
		}
		if i == 0 {
			dims = len(chunk.Embedding)
		} else if len(chunk.Embedding) != dims {
			return nil, 0, fmt.Errorf("%w: chunk %s has dimension %d, want %d",
				ErrBuild, chunk.ID, len(chunk.Embedding), dims)
		}
	}

	snapshot := make([]models.Chunk, len(chunks))
	copy(snapshot, chunks)
	return snapshot, dims, nil
}

// Query returns up to k chunks ranked by descending cosine similarity to the
// query vector. Ties keep corpus insertion order. Safe for unlimited
// concurrent callers once Build has completed.
func (idx *VectorIndex) Query(queryVector []float64, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultK
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, ErrNotReady
	}
	if len(idx.chunks) == 0 {
		return nil, nil
	}
	if len(queryVector) != idx.dimensions {
		return nil, fmt.Errorf("query vector has dimension %d, index has %d",
			len(queryVector), idx.dimensions)
	}

	results := make([]models.RetrievalResult, len(idx.chunks))
	for i, chunk := range idx.chunks {
		results[i] = models.RetrievalResult{
			Chunk: chunk,
			Score: cosineSimilarity(queryVector, chunk.Embedding),
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Size returns the number of indexed chunks
func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Ready reports whether the index has been built
func (idx *VectorIndex) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ready
}

// cosineSimilarity calculates the cosine similarity between two vectors
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
