package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobarin/podcast/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const episodeColumns = `
	id, topic, status, script_asset_id, audio_asset_id, stats,
	error_code, error_message, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEpisode(row rowScanner, e *models.Episode) error {
	return row.Scan(
		&e.ID, &e.Topic, &e.Status, &e.ScriptAssetID, &e.AudioAssetID, &e.Stats,
		&e.ErrorCode, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt,
	)
}

func (db *DB) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	query := `
		INSERT INTO episodes (id, topic, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(ctx, query, episode.ID, episode.Topic, episode.Status).
		Scan(&episode.CreatedAt, &episode.UpdatedAt)
}

func (db *DB) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE id = $1`

	episode := &models.Episode{}
	err := scanEpisode(db.QueryRowContext(ctx, query, id), episode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}

	return episode, nil
}

func (db *DB) ListEpisodes(ctx context.Context, status string, limit, offset int) ([]models.Episode, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `SELECT ` + episodeColumns + ` FROM episodes`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	episodes := []models.Episode{}
	for rows.Next() {
		var e models.Episode
		if err := scanEpisode(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, e)
	}

	return episodes, rows.Err()
}

// CountEpisodes returns the number of episodes, optionally filtered by status.
func (db *DB) CountEpisodes(ctx context.Context, status string) (int, error) {
	var count int
	if status != "" {
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE status = $1`, status).Scan(&count)
		return count, err
	}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&count)
	return count, err
}

func (db *DB) UpdateEpisodeStatus(ctx context.Context, id uuid.UUID, status models.EpisodeStatus) error {
	query := `UPDATE episodes SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateEpisodeError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE episodes
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.EpisodeStatusFailed, errorCode, errorMessage, id)
	return err
}

// CompleteEpisode links the produced assets and marks the episode completed.
func (db *DB) CompleteEpisode(ctx context.Context, id, scriptAssetID, audioAssetID uuid.UUID, stats models.JSONB) error {
	query := `
		UPDATE episodes
		SET script_asset_id = $1, audio_asset_id = $2, stats = $3, status = $4,
			error_code = NULL, error_message = NULL, updated_at = NOW()
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, scriptAssetID, audioAssetID, stats, models.EpisodeStatusCompleted, id)
	return err
}
