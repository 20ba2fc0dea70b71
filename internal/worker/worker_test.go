package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobarin/podcast/internal/models"
	"github.com/bobarin/podcast/internal/pipeline"
	"github.com/bobarin/podcast/internal/queue"
	"github.com/google/uuid"
)

type fakeStore struct {
	mu        sync.Mutex
	episode   *models.Episode
	statuses  []models.EpisodeStatus
	errorCode string
	completed bool
	scriptID  uuid.UUID
	audioID   uuid.UUID
	stats     models.JSONB
	assets    []*models.Asset
	jobStatus []models.JobStatus
	jobErr    string
}

func (f *fakeStore) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	if f.episode == nil || f.episode.ID != id {
		return nil, errors.New("not found")
	}
	return f.episode, nil
}

func (f *fakeStore) UpdateEpisodeStatus(ctx context.Context, id uuid.UUID, status models.EpisodeStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) UpdateEpisodeError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	f.errorCode = errorCode
	return nil
}

func (f *fakeStore) CompleteEpisode(ctx context.Context, id, scriptAssetID, audioAssetID uuid.UUID, stats models.JSONB) error {
	f.completed = true
	f.scriptID, f.audioID, f.stats = scriptAssetID, audioAssetID, stats
	return nil
}

func (f *fakeStore) CreateAsset(ctx context.Context, asset *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets = append(f.assets, asset)
	return nil
}

func (f *fakeStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatus = append(f.jobStatus, status)
	return nil
}

func (f *fakeStore) UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobErr = errorMessage
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *fakeBlobs) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[objectPath] = data
	return nil
}

func (b *fakeBlobs) BucketName() string { return "episodes" }

// scriptedRunner saves two artifacts through the sink like the real pipeline.
type scriptedRunner struct {
	err error
}

func (r *scriptedRunner) Run(ctx context.Context, topic string, sink pipeline.ArtifactSink, onStage pipeline.StageFunc) (*pipeline.Result, error) {
	onStage(ctx, pipeline.StageFetching)
	if r.err != nil {
		return nil, r.err
	}
	onStage(ctx, pipeline.StageScripting)
	scriptLoc, err := sink.Save(ctx, "script.json", []byte(`{"conversation":[]}`), "application/json")
	if err != nil {
		return nil, err
	}
	onStage(ctx, pipeline.StageVoicing)
	audioLoc, err := sink.Save(ctx, "hinglish_podcast.mp3", []byte{0xFF}, "audio/mpeg")
	if err != nil {
		return nil, err
	}
	return &pipeline.Result{
		Topic:          topic,
		ScriptSource:   models.ScriptSourceFallback,
		Script:         &models.Script{},
		Audio:          &models.AudioBuffer{Data: []byte{0xFF}, Placeholder: true},
		ScriptLocation: scriptLoc,
		AudioLocation:  audioLoc,
	}, nil
}

func newTestEpisode() *models.Episode {
	return &models.Episode{ID: uuid.New(), Topic: "Mumbai Indians", Status: models.EpisodeStatusQueued}
}

func TestHandleGenerateEpisode(t *testing.T) {
	store := &fakeStore{episode: newTestEpisode()}
	blobs := &fakeBlobs{}
	w := New(store, nil, blobs, &scriptedRunner{})

	job := &queue.Job{ID: uuid.New(), EpisodeID: store.episode.ID}
	if err := w.handleGenerateEpisode(context.Background(), job); err != nil {
		t.Fatalf("handleGenerateEpisode: %v", err)
	}

	if !store.completed {
		t.Fatal("expected episode to be completed")
	}
	if len(store.assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(store.assets))
	}
	if store.assets[0].Type != models.AssetTypeScriptJSON || store.assets[1].Type != models.AssetTypeAudio {
		t.Errorf("unexpected asset types %s, %s", store.assets[0].Type, store.assets[1].Type)
	}
	if store.scriptID != store.assets[0].ID || store.audioID != store.assets[1].ID {
		t.Error("episode not linked to its assets")
	}

	prefix := store.episode.ID.String() + "/"
	for path := range blobs.objects {
		if !strings.HasPrefix(path, prefix) {
			t.Errorf("object %s not under episode prefix", path)
		}
	}

	want := []models.EpisodeStatus{models.EpisodeStatusFetching, models.EpisodeStatusScripting, models.EpisodeStatusVoicing}
	if len(store.statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", store.statuses, want)
	}
	for i := range want {
		if store.statuses[i] != want[i] {
			t.Errorf("status %d = %s, want %s", i, store.statuses[i], want[i])
		}
	}
}

func TestHandleGenerateEpisodeNoContent(t *testing.T) {
	store := &fakeStore{episode: newTestEpisode()}
	w := New(store, nil, &fakeBlobs{}, &scriptedRunner{err: pipeline.ErrNoContent})

	err := w.handleGenerateEpisode(context.Background(), &queue.Job{ID: uuid.New(), EpisodeID: store.episode.ID})
	if !errors.Is(err, pipeline.ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if store.errorCode != ErrorCodeNoContent {
		t.Errorf("expected %s, got %q", ErrorCodeNoContent, store.errorCode)
	}
	if store.completed {
		t.Error("episode must not complete without content")
	}
}

func TestHandleGenerateEpisodePipelineFailure(t *testing.T) {
	store := &fakeStore{episode: newTestEpisode()}
	w := New(store, nil, &fakeBlobs{}, &scriptedRunner{err: errors.New("failed to save script: upload failed")})

	if err := w.handleGenerateEpisode(context.Background(), &queue.Job{ID: uuid.New(), EpisodeID: store.episode.ID}); err == nil {
		t.Fatal("expected error")
	}
	if store.errorCode != ErrorCodePipelineFailed {
		t.Errorf("expected %s, got %q", ErrorCodePipelineFailed, store.errorCode)
	}
}

// chanQueue hands out jobs from a channel and reports empty otherwise.
type chanQueue struct {
	jobs chan *queue.Job
}

func (q *chanQueue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func TestStartProcessesJobsUntilCancelled(t *testing.T) {
	store := &fakeStore{episode: newTestEpisode()}
	q := &chanQueue{jobs: make(chan *queue.Job, 1)}
	w := New(store, q, &fakeBlobs{}, &scriptedRunner{})

	q.jobs <- &queue.Job{ID: uuid.New(), Type: queue.JobTypeGenerateEpisode, EpisodeID: store.episode.ID}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, 2) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		n := len(store.jobStatus)
		store.mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.jobStatus) != 2 || store.jobStatus[0] != models.JobStatusRunning || store.jobStatus[1] != models.JobStatusSucceeded {
		t.Errorf("unexpected job statuses %v", store.jobStatus)
	}
}
