package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bobarin/podcast/internal/db"
	"github.com/bobarin/podcast/internal/models"
	"github.com/bobarin/podcast/internal/queue"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxTopicLength = 200

type episodeStore interface {
	CreateEpisode(ctx context.Context, episode *models.Episode) error
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	ListEpisodes(ctx context.Context, status string, limit, offset int) ([]models.Episode, error)
	CountEpisodes(ctx context.Context, status string) (int, error)
	CreateJob(ctx context.Context, job *models.Job) error
	GetEpisodeJobs(ctx context.Context, episodeID uuid.UUID) ([]models.Job, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error)
}

type jobEnqueuer interface {
	EnqueueGenerateEpisode(ctx context.Context, episodeID, jobID uuid.UUID, topic string) error
}

type blobReader interface {
	GetPublicURL(objectPath string) string
	GetSignedURL(ctx context.Context, objectPath string, expiresIn int) (string, error)
	Download(ctx context.Context, objectPath string) ([]byte, error)
}

type Handler struct {
	db      episodeStore
	queue   jobEnqueuer
	storage blobReader
}

func NewHandler(database episodeStore, q jobEnqueuer, stor blobReader) *Handler {
	return &Handler{
		db:      database,
		queue:   q,
		storage: stor,
	}
}

// CreateEpisode handles POST /v1/episodes
func (h *Handler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		respondError(w, http.StatusBadRequest, "Topic is required")
		return
	}
	if utf8.RuneCountInString(topic) > maxTopicLength {
		respondError(w, http.StatusBadRequest, "Topic is too long")
		return
	}

	episode := &models.Episode{
		ID:     uuid.New(),
		Topic:  topic,
		Status: models.EpisodeStatusQueued,
	}
	if err := h.db.CreateEpisode(r.Context(), episode); err != nil {
		log.Printf("[API] Failed to create episode: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create episode")
		return
	}

	job := &models.Job{
		ID:        uuid.New(),
		EpisodeID: episode.ID,
		Type:      queue.JobTypeGenerateEpisode,
		Status:    models.JobStatusQueued,
	}
	if err := h.db.CreateJob(r.Context(), job); err != nil {
		log.Printf("[API] Failed to create job: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueGenerateEpisode(r.Context(), episode.ID, job.ID, topic); err != nil {
		log.Printf("[API] Failed to enqueue job: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateEpisodeResponse{
		EpisodeID: episode.ID,
		Status:    episode.Status,
	})
}

// ListEpisodes handles GET /v1/episodes
// Query params:
//   - status: filter by episode status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !models.EpisodeStatus(statusFilter).Valid() {
		respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: queued, fetching, scripting, voicing, completed, failed")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountEpisodes(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count episodes")
		return
	}

	episodes, err := h.db.ListEpisodes(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}

	respondJSON(w, http.StatusOK, models.ListEpisodesResponse{
		Episodes: episodes,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetEpisode handles GET /v1/episodes/{id}
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, ok := h.loadEpisode(w, r)
	if !ok {
		return
	}

	response := models.EpisodeResponse{Episode: *episode}
	response.ScriptURL = h.assetURL(r.Context(), episode.ScriptAssetID)
	response.AudioURL = h.assetURL(r.Context(), episode.AudioAssetID)

	respondJSON(w, http.StatusOK, response)
}

// GetEpisodeScript handles GET /v1/episodes/{id}/script
func (h *Handler) GetEpisodeScript(w http.ResponseWriter, r *http.Request) {
	episode, ok := h.loadEpisode(w, r)
	if !ok {
		return
	}

	if episode.ScriptAssetID == nil {
		respondError(w, http.StatusNotFound, "Script not ready")
		return
	}

	asset, err := h.db.GetAsset(r.Context(), *episode.ScriptAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	data, err := h.storage.Download(r.Context(), asset.StoragePath)
	if err != nil {
		log.Printf("[API] Failed to download script %s: %v", asset.StoragePath, err)
		respondError(w, http.StatusBadGateway, "Failed to fetch script")
		return
	}

	script, err := models.ParseScript(data)
	if err != nil {
		log.Printf("[API] Stored script %s is invalid: %v", asset.StoragePath, err)
		respondError(w, http.StatusInternalServerError, "Stored script is invalid")
		return
	}

	respondJSON(w, http.StatusOK, script)
}

// GetEpisodeAudio handles GET /v1/episodes/{id}/audio
func (h *Handler) GetEpisodeAudio(w http.ResponseWriter, r *http.Request) {
	episode, ok := h.loadEpisode(w, r)
	if !ok {
		return
	}

	if episode.AudioAssetID == nil {
		respondError(w, http.StatusNotFound, "Audio not ready")
		return
	}

	asset, err := h.db.GetAsset(r.Context(), *episode.AudioAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	// Signed URL valid for 1 hour
	signedURL, err := h.storage.GetSignedURL(r.Context(), asset.StoragePath, 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetEpisodeJobs handles GET /v1/episodes/{id}/debug/jobs
func (h *Handler) GetEpisodeJobs(w http.ResponseWriter, r *http.Request) {
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return
	}

	jobs, err := h.db.GetEpisodeJobs(r.Context(), episodeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

func (h *Handler) loadEpisode(w http.ResponseWriter, r *http.Request) (*models.Episode, bool) {
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return nil, false
	}

	episode, err := h.db.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Episode not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[API] Failed to get episode %s: %v", episodeID, err)
		respondError(w, http.StatusInternalServerError, "Failed to get episode")
		return nil, false
	}

	return episode, true
}

func (h *Handler) assetURL(ctx context.Context, assetID *uuid.UUID) *string {
	if assetID == nil {
		return nil
	}
	asset, err := h.db.GetAsset(ctx, *assetID)
	if err != nil {
		return nil
	}
	url := h.storage.GetPublicURL(asset.StoragePath)
	return &url
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
