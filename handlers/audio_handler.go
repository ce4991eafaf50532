package handlers

import (
	"log"
	"net/http"

	"sahayak-backend/repository"
	"sahayak-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AudioHandler serves stored speech artifacts
type AudioHandler struct {
	artifacts *repository.ArtifactRepository
	storage   storage.Storage
}

// NewAudioHandler creates a new audio handler
func NewAudioHandler(artifacts *repository.ArtifactRepository, store storage.Storage) *AudioHandler {
	return &AudioHandler{
		artifacts: artifacts,
		storage:   store,
	}
}

// GetAudio handles GET /api/audio/:id and streams the synthesized answer
func (h *AudioHandler) GetAudio(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ARTIFACT_ID",
				"message": "Invalid artifact ID format",
			},
		})
		return
	}

	artifact, err := h.artifacts.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == pgx.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ARTIFACT_NOT_FOUND",
					"message": "Audio artifact not found",
				},
			})
			return
		}
		log.Printf("artifact %s: lookup failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to look up the artifact",
			},
		})
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), artifact.StoragePath)
	if err != nil {
		log.Printf("artifact %s: download failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOWNLOAD_ERROR",
				"message": "Failed to retrieve the audio",
			},
		})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, artifact.Size, artifact.MimeType, reader, nil)
}
