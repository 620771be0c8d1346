package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"duo-dare-backend/internal/middleware"
	"duo-dare-backend/internal/models"
	"duo-dare-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles message and media HTTP requests
type MessageHandler struct {
	mediaService *services.MediaService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(mediaService *services.MediaService) *MessageHandler {
	return &MessageHandler{mediaService: mediaService}
}

// SendTextRequest is the body for POST /api/v1/sessions/{code}/messages
type SendTextRequest struct {
	Content string `json:"content"`
}

// SendText handles POST /api/v1/sessions/{code}/messages
func (h *MessageHandler) SendText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	var req SendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		respondError(w, "content is required", http.StatusBadRequest)
		return
	}

	msg, err := h.mediaService.SendTextMessage(ctx, code, userID, req.Content)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", code).Msg("Failed to send message")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// List handles GET /api/v1/sessions/{code}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	limit := 50
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil {
			offset = parsed
		}
	}

	messages, total, err := h.mediaService.ListMessages(ctx, code, userID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"total":    total,
	})
}

// InitiateUploadRequest is the body for POST /api/v1/sessions/{code}/media
type InitiateUploadRequest struct {
	RequestID   string             `json:"request_id"`
	Type        models.MessageType `json:"type"`
	Filename    string             `json:"filename"`
	ContentType string             `json:"content_type"`
	SizeBytes   int64              `json:"size_bytes"`
}

// InitiateUpload handles POST /api/v1/sessions/{code}/media
func (h *MessageHandler) InitiateUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	var req InitiateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RequestID == "" {
		respondError(w, "request_id is required", http.StatusBadRequest)
		return
	}

	ticket, err := h.mediaService.InitiateUpload(ctx, services.UploadParams{
		SessionCode: code,
		SenderID:    userID,
		RequestID:   req.RequestID,
		Type:        req.Type,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", code).Msg("Failed to initiate upload")
		respondDomainError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("code", code).
		Str("request_id", req.RequestID).
		Msg("Upload initiated")
	respondJSON(w, http.StatusOK, ticket)
}

// FinalizeUpload handles POST /api/v1/media/{request_id}/finalize
func (h *MessageHandler) FinalizeUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	requestID := chi.URLParam(r, "request_id")

	msg, err := h.mediaService.FinalizeUpload(ctx, requestID, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("request_id", requestID).Msg("Failed to finalize upload")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Download handles POST /api/v1/sessions/{code}/messages/{message_id}/download
func (h *MessageHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")
	messageID := chi.URLParam(r, "message_id")

	url, err := h.mediaService.DownloadMedia(ctx, code, messageID, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("message_id", messageID).Msg("Failed to download media")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"media_url": url})
}

// MarkRead handles POST /api/v1/messages/{message_id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	messageID := chi.URLParam(r, "message_id")

	if err := h.mediaService.MarkAsRead(ctx, messageID, userID); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
