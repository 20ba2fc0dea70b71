package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/podcast/internal/models"
	"github.com/google/uuid"
)

const assetColumns = `
	id, episode_id, type, storage_bucket,
	storage_path, content_type, byte_size, created_at
`

func scanAsset(row rowScanner, a *models.Asset) error {
	return row.Scan(
		&a.ID, &a.EpisodeID, &a.Type, &a.StorageBucket,
		&a.StoragePath, &a.ContentType, &a.ByteSize, &a.CreatedAt,
	)
}

func (db *DB) CreateAsset(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (
			id, episode_id, type, storage_bucket,
			storage_path, content_type, byte_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		asset.ID, asset.EpisodeID, asset.Type, asset.StorageBucket,
		asset.StoragePath, asset.ContentType, asset.ByteSize,
	).Scan(&asset.CreatedAt)
}

func (db *DB) GetAsset(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`

	asset := &models.Asset{}
	err := scanAsset(db.QueryRowContext(ctx, query, id), asset)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

func (db *DB) GetEpisodeAssets(ctx context.Context, episodeID uuid.UUID) ([]models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE episode_id = $1 ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		var asset models.Asset
		if err := scanAsset(rows, &asset); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}
