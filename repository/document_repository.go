package repository

import (
	"context"

	"sahayak-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for corpus documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert inserts a document or replaces the content of an existing one,
// matching on source_url so the scraper can be re-run safely.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (content, source_url, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_url)
		DO UPDATE SET content = EXCLUDED.content, metadata = EXCLUDED.metadata
		RETURNING id, created_at`

	return r.db.QueryRow(
		ctx, query,
		doc.Content,
		doc.SourceURL,
		doc.Metadata,
	).Scan(&doc.ID, &doc.CreatedAt)
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	query := `
		SELECT id, content, source_url, metadata, created_at
		FROM documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Content,
		&doc.SourceURL,
		&doc.Metadata,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// ListAll retrieves the full corpus in insertion order. The order matters:
// the vector index breaks similarity ties by corpus position.
func (r *DocumentRepository) ListAll(ctx context.Context) ([]*models.Document, error) {
	query := `
		SELECT id, content, source_url, metadata, created_at
		FROM documents
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.Content,
			&doc.SourceURL,
			&doc.Metadata,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Count returns the number of documents in the corpus
func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}
