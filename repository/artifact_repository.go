package repository

import (
	"context"

	"sahayak-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtifactRepository handles database operations for audio artifacts
type ArtifactRepository struct {
	db *pgxpool.Pool
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(db *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create creates a new audio artifact record
func (r *ArtifactRepository) Create(ctx context.Context, artifact *models.AudioArtifact) error {
	query := `
		INSERT INTO audio_artifacts (
			id, session_id, language_code, mime_type, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		artifact.ID,
		artifact.SessionID,
		artifact.LanguageCode,
		artifact.MimeType,
		artifact.Size,
		artifact.StoragePath,
	).Scan(&artifact.CreatedAt)
}

// GetByID retrieves an audio artifact by ID
func (r *ArtifactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AudioArtifact, error) {
	artifact := &models.AudioArtifact{}
	query := `
		SELECT id, session_id, language_code, mime_type, size, storage_path, created_at
		FROM audio_artifacts
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&artifact.ID,
		&artifact.SessionID,
		&artifact.LanguageCode,
		&artifact.MimeType,
		&artifact.Size,
		&artifact.StoragePath,
		&artifact.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return artifact, nil
}

// Delete deletes an audio artifact record
func (r *ArtifactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM audio_artifacts WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
