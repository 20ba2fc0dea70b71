package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bobarin/podcast/internal/models"
	"github.com/bobarin/podcast/internal/pipeline"
	"github.com/bobarin/podcast/internal/queue"
	"github.com/bobarin/podcast/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Error codes recorded on failed episodes.
const (
	ErrorCodeNoContent      = "no_content"
	ErrorCodePipelineFailed = "pipeline_failed"
)

type episodeStore interface {
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	UpdateEpisodeStatus(ctx context.Context, id uuid.UUID, status models.EpisodeStatus) error
	UpdateEpisodeError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error
	CompleteEpisode(ctx context.Context, id, scriptAssetID, audioAssetID uuid.UUID, stats models.JSONB) error
	CreateAsset(ctx context.Context, asset *models.Asset) error
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error
	UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error
}

type jobQueue interface {
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error)
}

type blobStorage interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
	BucketName() string
}

type episodeRunner interface {
	Run(ctx context.Context, topic string, sink pipeline.ArtifactSink, onStage pipeline.StageFunc) (*pipeline.Result, error)
}

type Worker struct {
	db        episodeStore
	queue     jobQueue
	storage   blobStorage
	runner    episodeRunner
	uploadSem chan struct{} // limits concurrent Supabase uploads across consumers
}

func New(database episodeStore, q jobQueue, stor blobStorage, runner episodeRunner) *Worker {
	return &Worker{
		db:        database,
		queue:     q,
		storage:   stor,
		runner:    runner,
		uploadSem: make(chan struct{}, 4),
	}
}

// uploadWithLimit wraps an upload call with a semaphore to prevent Supabase congestion.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	log.Printf("[Upload] %s uploading...", label)
	return fn()
}

// Start runs concurrency consumers of the episode queue until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	log.Printf("[Worker] started with concurrency: %d", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.processQueue(gctx, queue.QueueGenerateEpisode, w.handleGenerateEpisode)
			return nil
		})
	}

	err := g.Wait()
	log.Println("[Worker] shutting down...")
	return err
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Worker] Error dequeuing from %s: %v", queueName, err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.processJob(ctx, job, handler)
	}
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job, handler func(context.Context, *queue.Job) error) {
	log.Printf("[Worker] Processing job %s (type: %s, episode: %s)", job.ID, job.Type, job.EpisodeID)

	if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
		log.Printf("[Worker] Failed to update job status: %v", err)
	}

	if err := handler(ctx, job); err != nil {
		log.Printf("[Worker] Job %s failed: %v", job.ID, err)
		if err := w.db.UpdateJobError(ctx, job.ID, err.Error()); err != nil {
			log.Printf("[Worker] Failed to record job error: %v", err)
		}
		return
	}

	log.Printf("[Worker] Job %s completed successfully", job.ID)
	if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded); err != nil {
		log.Printf("[Worker] Failed to update job status: %v", err)
	}
}

// handleGenerateEpisode runs the whole pipeline for one episode.
func (w *Worker) handleGenerateEpisode(ctx context.Context, job *queue.Job) error {
	episode, err := w.db.GetEpisode(ctx, job.EpisodeID)
	if err != nil {
		return fmt.Errorf("failed to get episode: %w", err)
	}

	log.Printf("[Worker] Generating episode %s (topic=%q)", episode.ID, episode.Topic)

	sink := &episodeSink{worker: w, episodeID: episode.ID, assets: make(map[string]uuid.UUID)}

	onStage := func(ctx context.Context, stage string) {
		if err := w.db.UpdateEpisodeStatus(ctx, episode.ID, models.EpisodeStatus(stage)); err != nil {
			log.Printf("[Worker] Failed to update episode %s to %s: %v", episode.ID, stage, err)
		}
	}

	result, err := w.runner.Run(ctx, episode.Topic, sink, onStage)
	if err != nil {
		code := ErrorCodePipelineFailed
		if errors.Is(err, pipeline.ErrNoContent) {
			code = ErrorCodeNoContent
		}
		if dbErr := w.db.UpdateEpisodeError(ctx, episode.ID, code, err.Error()); dbErr != nil {
			log.Printf("[Worker] Failed to record episode error: %v", dbErr)
		}
		return err
	}

	scriptAssetID, audioAssetID := sink.assetFor(result.ScriptLocation), sink.assetFor(result.AudioLocation)
	if err := w.db.CompleteEpisode(ctx, episode.ID, scriptAssetID, audioAssetID, result.Stats()); err != nil {
		return fmt.Errorf("failed to complete episode: %w", err)
	}

	log.Printf("[Worker] Episode %s completed (script=%s, placeholder audio=%v)",
		episode.ID, result.ScriptSource, result.Audio.Placeholder)

	return nil
}

// episodeSink uploads pipeline artifacts under {episodeID}/ and records an
// asset row for each.
type episodeSink struct {
	worker    *Worker
	episodeID uuid.UUID

	mu     sync.Mutex
	assets map[string]uuid.UUID // storage path -> asset id
}

func (s *episodeSink) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	objectPath := storage.EpisodePath(s.episodeID, name)

	err := s.worker.uploadWithLimit(ctx, objectPath, func() error {
		return s.worker.storage.Upload(ctx, objectPath, data, contentType)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	assetType := models.AssetTypeAudio
	if contentType == "application/json" {
		assetType = models.AssetTypeScriptJSON
	}

	size := int64(len(data))
	asset := &models.Asset{
		ID:            uuid.New(),
		EpisodeID:     s.episodeID,
		Type:          assetType,
		StorageBucket: s.worker.storage.BucketName(),
		StoragePath:   objectPath,
		ContentType:   &contentType,
		ByteSize:      &size,
	}
	if err := s.worker.db.CreateAsset(ctx, asset); err != nil {
		return "", fmt.Errorf("failed to create asset record: %w", err)
	}

	s.mu.Lock()
	s.assets[objectPath] = asset.ID
	s.mu.Unlock()

	return objectPath, nil
}

func (s *episodeSink) assetFor(objectPath string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets[objectPath]
}
