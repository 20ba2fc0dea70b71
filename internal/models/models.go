package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type EpisodeStatus string

const (
	EpisodeStatusQueued    EpisodeStatus = "queued"
	EpisodeStatusFetching  EpisodeStatus = "fetching"
	EpisodeStatusScripting EpisodeStatus = "scripting"
	EpisodeStatusVoicing   EpisodeStatus = "voicing"
	EpisodeStatusCompleted EpisodeStatus = "completed"
	EpisodeStatusFailed    EpisodeStatus = "failed"
)

// Valid reports whether s is one of the known episode statuses.
func (s EpisodeStatus) Valid() bool {
	switch s {
	case EpisodeStatusQueued, EpisodeStatusFetching, EpisodeStatusScripting,
		EpisodeStatusVoicing, EpisodeStatusCompleted, EpisodeStatusFailed:
		return true
	}
	return false
}

type AssetType string

const (
	AssetTypeScriptJSON AssetType = "script_json"
	AssetTypeAudio      AssetType = "audio"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

type Episode struct {
	ID            uuid.UUID     `json:"id"`
	Topic         string        `json:"topic"`
	Status        EpisodeStatus `json:"status"`
	ScriptAssetID *uuid.UUID    `json:"script_asset_id,omitempty"`
	AudioAssetID  *uuid.UUID    `json:"audio_asset_id,omitempty"`
	Stats         JSONB         `json:"stats,omitempty"` // excerpt/script sources, turn and word counts
	ErrorCode     *string       `json:"error_code,omitempty"`
	ErrorMessage  *string       `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Asset struct {
	ID            uuid.UUID `json:"id"`
	EpisodeID     uuid.UUID `json:"episode_id"`
	Type          AssetType `json:"type"`
	StorageBucket string    `json:"storage_bucket"`
	StoragePath   string    `json:"storage_path"`
	ContentType   *string   `json:"content_type,omitempty"`
	ByteSize      *int64    `json:"byte_size,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	EpisodeID    uuid.UUID  `json:"episode_id"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DTOs for API responses
type EpisodeResponse struct {
	Episode
	ScriptURL *string `json:"script_url,omitempty"`
	AudioURL  *string `json:"audio_url,omitempty"`
}

type ListEpisodesResponse struct {
	Episodes []Episode `json:"episodes"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

type CreateEpisodeRequest struct {
	Topic string `json:"topic"`
}

type CreateEpisodeResponse struct {
	EpisodeID uuid.UUID     `json:"episode_id"`
	Status    EpisodeStatus `json:"status"`
}
