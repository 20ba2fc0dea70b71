package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueGenerateEpisode = "queue:generate_episode"

	JobTypeGenerateEpisode = "generate_episode"
)

type Queue struct {
	client *redis.Client
}

// Job is the payload pushed onto a Redis list.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	EpisodeID uuid.UUID `json:"episode_id"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

// Dequeue blocks up to timeout. A nil job with a nil error means the queue was empty.
func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	return decodeJob([]byte(result[1]))
}

func decodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.EpisodeID == uuid.Nil {
		return nil, fmt.Errorf("job %s has no episode id", job.ID)
	}
	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueGenerateEpisode enqueues a full pipeline run for one episode.
func (q *Queue) EnqueueGenerateEpisode(ctx context.Context, episodeID, jobID uuid.UUID, topic string) error {
	job := &Job{
		ID:        jobID,
		Type:      JobTypeGenerateEpisode,
		EpisodeID: episodeID,
		Topic:     topic,
	}
	return q.Enqueue(ctx, QueueGenerateEpisode, job)
}
