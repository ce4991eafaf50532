package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"sahayak-backend/index"
	"sahayak-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler handles HTTP requests for the conversational endpoints
type ChatHandler struct {
	chatService      *service.ChatService
	speechService    *service.SpeechService
	maxAudioSize     int64
	allowedAudioMime map[string]bool
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, speechService *service.SpeechService) *ChatHandler {
	return &ChatHandler{
		chatService:   chatService,
		speechService: speechService,
		maxAudioSize:  10 * 1024 * 1024, // 10MB
		allowedAudioMime: map[string]bool{
			"audio/wav":   true,
			"audio/x-wav": true,
			"audio/mpeg":  true,
			"audio/mp3":   true,
			"audio/ogg":   true,
			"audio/webm":  true,
		},
	}
}

// Chat handles POST /api/chat. The multipart form carries either a "text"
// field or an audio "file", plus an optional "session_id" and "speak" flag.
func (h *ChatHandler) Chat(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	req := service.AskRequest{
		SessionID: sessionID,
		Text:      c.PostForm("text"),
	}

	fileHeader, err := c.FormFile("file")
	if err == nil {
		if fileHeader.Size > h.maxAudioSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FILE_TOO_LARGE",
					"message": "Audio exceeds the maximum upload size",
				},
			})
			return
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		if !h.allowedAudioMime[mimeType] && !strings.HasPrefix(mimeType, "audio/") {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_FILE_TYPE",
					"message": "Only audio uploads are accepted",
				},
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FILE_OPEN_ERROR",
					"message": "Failed to read the uploaded audio",
				},
			})
			return
		}
		defer file.Close()

		audio, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FILE_READ_ERROR",
					"message": "Failed to read the uploaded audio",
				},
			})
			return
		}

		req.Audio = audio
		req.AudioMimeType = mimeType
	}

	if req.Text == "" && len(req.Audio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_INPUT",
				"message": "Either text or an audio file is required",
			},
		})
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), req)
	if err != nil {
		h.respondPipelineError(c, sessionID, "chat", err)
		return
	}

	data := gin.H{
		"answer":        answer.Text,
		"language_code": answer.LanguageCode,
		"session_id":    sessionID,
	}

	if c.PostForm("speak") == "true" {
		artifact, err := h.speechService.SpeakAnswer(c.Request.Context(), sessionID, answer)
		if err != nil {
			// The answer stands; the spoken rendition is best effort
			log.Printf("session %s: speech synthesis failed: %v", sessionID, err)
		} else {
			data["audio_id"] = artifact.ID
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// SuggestQuestionsRequest represents the request body for suggestions
type SuggestQuestionsRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// SuggestQuestions handles POST /api/suggestions
func (h *ChatHandler) SuggestQuestions(c *gin.Context) {
	var req SuggestQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	questions, err := h.chatService.SuggestQuestions(c.Request.Context(), req.Topic)
	if err != nil {
		h.respondPipelineError(c, "", "suggestions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"questions": questions,
		},
	})
}

// respondPipelineError maps pipeline errors to responses. Internal detail is
// logged with the session id and stage but never sent to the caller.
func (h *ChatHandler) respondPipelineError(c *gin.Context, sessionID, stage string, err error) {
	log.Printf("session %q: stage %s failed: %v", sessionID, stage, err)

	switch {
	case errors.Is(err, index.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INDEX_NOT_READY",
				"message": "The service is still starting up, try again shortly",
			},
		})
	case errors.Is(err, service.ErrNormalizationParse):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NORMALIZATION_FAILED",
				"message": "The input could not be understood",
			},
		})
	case errors.Is(err, service.ErrRetrieval), errors.Is(err, service.ErrGeneration):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPSTREAM_FAILED",
				"message": "The answer could not be produced, try again",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "An internal error occurred",
			},
		})
	}
}
