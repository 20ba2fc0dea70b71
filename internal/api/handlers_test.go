package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobarin/podcast/internal/db"
	"github.com/bobarin/podcast/internal/models"
	"github.com/google/uuid"
)

type memStore struct {
	episodes map[uuid.UUID]*models.Episode
	assets   map[uuid.UUID]*models.Asset
	jobs     []*models.Job
}

func newMemStore() *memStore {
	return &memStore{
		episodes: make(map[uuid.UUID]*models.Episode),
		assets:   make(map[uuid.UUID]*models.Asset),
	}
}

func (m *memStore) CreateEpisode(ctx context.Context, e *models.Episode) error {
	m.episodes[e.ID] = e
	return nil
}

func (m *memStore) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	e, ok := m.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, db.ErrNotFound)
	}
	return e, nil
}

func (m *memStore) ListEpisodes(ctx context.Context, status string, limit, offset int) ([]models.Episode, error) {
	out := []models.Episode{}
	for _, e := range m.episodes {
		if status == "" || string(e.Status) == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) CountEpisodes(ctx context.Context, status string) (int, error) {
	list, _ := m.ListEpisodes(ctx, status, 0, 0)
	return len(list), nil
}

func (m *memStore) CreateJob(ctx context.Context, job *models.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *memStore) GetEpisodeJobs(ctx context.Context, episodeID uuid.UUID) ([]models.Job, error) {
	out := []models.Job{}
	for _, j := range m.jobs {
		if j.EpisodeID == episodeID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memStore) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	a, ok := m.assets[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return a, nil
}

type memQueue struct {
	enqueued []string
	err      error
}

func (q *memQueue) EnqueueGenerateEpisode(ctx context.Context, episodeID, jobID uuid.UUID, topic string) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, topic)
	return nil
}

type memBlobs struct {
	objects map[string][]byte
}

func (b *memBlobs) GetPublicURL(objectPath string) string {
	return "https://cdn.example.com/" + objectPath
}

func (b *memBlobs) GetSignedURL(ctx context.Context, objectPath string, expiresIn int) (string, error) {
	return "https://cdn.example.com/signed/" + objectPath, nil
}

func (b *memBlobs) Download(ctx context.Context, objectPath string) ([]byte, error) {
	data, ok := b.objects[objectPath]
	if !ok {
		return nil, errors.New("missing object")
	}
	return data, nil
}

func newTestRouter(store *memStore, q *memQueue, blobs *memBlobs, apiKey string) http.Handler {
	return NewRouter(NewHandler(store, q, blobs), RouterConfig{BackendAPIKey: apiKey})
}

func TestCreateEpisode(t *testing.T) {
	store, q := newMemStore(), &memQueue{}
	router := newTestRouter(store, q, &memBlobs{}, "")

	req := httptest.NewRequest("POST", "/v1/episodes", strings.NewReader(`{"topic":"  Mumbai Indians "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.CreateEpisodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Status != models.EpisodeStatusQueued {
		t.Errorf("expected queued, got %s", resp.Status)
	}
	if store.episodes[resp.EpisodeID].Topic != "Mumbai Indians" {
		t.Errorf("topic not trimmed: %q", store.episodes[resp.EpisodeID].Topic)
	}
	if len(store.jobs) != 1 || len(q.enqueued) != 1 {
		t.Errorf("expected one job created and enqueued, got %d/%d", len(store.jobs), len(q.enqueued))
	}
}

func TestCreateEpisodeValidation(t *testing.T) {
	router := newTestRouter(newMemStore(), &memQueue{}, &memBlobs{}, "")

	for _, body := range []string{`not json`, `{"topic":""}`, `{"topic":"   "}`, `{"topic":"` + strings.Repeat("x", 201) + `"}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/episodes", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %.20q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestCreateEpisodeEnqueueFailure(t *testing.T) {
	router := newTestRouter(newMemStore(), &memQueue{err: errors.New("redis down")}, &memBlobs{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/episodes", strings.NewReader(`{"topic":"Chess"}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func completedEpisode(store *memStore, blobs *memBlobs) *models.Episode {
	scriptAsset := &models.Asset{ID: uuid.New(), Type: models.AssetTypeScriptJSON, StoragePath: "ep/script.json"}
	audioAsset := &models.Asset{ID: uuid.New(), Type: models.AssetTypeAudio, StoragePath: "ep/hinglish_podcast.mp3"}
	store.assets[scriptAsset.ID] = scriptAsset
	store.assets[audioAsset.ID] = audioAsset

	blobs.objects = map[string][]byte{
		"ep/script.json": []byte(`{"conversation":[{"speaker":"Kabir","text":"Namaste doston!"}]}`),
	}

	e := &models.Episode{
		ID:            uuid.New(),
		Topic:         "Mumbai Indians",
		Status:        models.EpisodeStatusCompleted,
		ScriptAssetID: &scriptAsset.ID,
		AudioAssetID:  &audioAsset.ID,
	}
	store.episodes[e.ID] = e
	return e
}

func TestGetEpisode(t *testing.T) {
	store, blobs := newMemStore(), &memBlobs{}
	e := completedEpisode(store, blobs)
	router := newTestRouter(store, &memQueue{}, blobs, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes/"+e.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp models.EpisodeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.AudioURL == nil || *resp.AudioURL != "https://cdn.example.com/ep/hinglish_podcast.mp3" {
		t.Errorf("unexpected audio url %v", resp.AudioURL)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes/"+uuid.New().String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown episode, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestGetEpisodeScriptAndAudio(t *testing.T) {
	store, blobs := newMemStore(), &memBlobs{}
	e := completedEpisode(store, blobs)
	router := newTestRouter(store, &memQueue{}, blobs, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes/"+e.ID.String()+"/script", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	script, err := models.ParseScript(rec.Body.Bytes())
	if err != nil || script.Conversation[0].Speaker != "Kabir" {
		t.Errorf("unexpected script response %s (%v)", rec.Body.String(), err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes/"+e.ID.String()+"/audio", nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://cdn.example.com/signed/ep/hinglish_podcast.mp3" {
		t.Errorf("unexpected redirect %s", loc)
	}
}

func TestGetEpisodeAudioNotReady(t *testing.T) {
	store := newMemStore()
	e := &models.Episode{ID: uuid.New(), Topic: "Chess", Status: models.EpisodeStatusVoicing}
	store.episodes[e.ID] = e
	router := newTestRouter(store, &memQueue{}, &memBlobs{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes/"+e.ID.String()+"/audio", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListEpisodesRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(newMemStore(), &memQueue{}, &memBlobs{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes?status=rendering", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/episodes?status=completed&limit=500", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp models.ListEpisodesResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Limit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", resp.Limit)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	router := newTestRouter(newMemStore(), &memQueue{}, &memBlobs{}, "secret")

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "X-API-Key", "nope", http.StatusForbidden},
		{"header", "X-API-Key", "secret", http.StatusOK},
		{"bearer", "Authorization", "Bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/episodes", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health must be public, got %d", rec.Code)
	}
}
