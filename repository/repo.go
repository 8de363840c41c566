package repository

import (
	"context"
	"database/sql"
	"errors"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reelstream/constant"
	"reelstream/entities"
)

type AssetRepository interface {
	CreateAsset(ctx context.Context, asset *entities.VideoAsset) error
	FindAssetById(ctx context.Context, id string) (*entities.VideoAsset, error)
	ListAssets(ctx context.Context, offset, limit int) ([]*entities.VideoAsset, int64, error)
	CreateJob(ctx context.Context, job *entities.Job) error
	FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error
	CompleteJob(ctx context.Context, id uuid.UUID, assetID string) error
	FailJob(ctx context.Context, id uuid.UUID, reason string) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) (AssetRepository, error) {
	if db == nil {
		return nil, errors.New("repository: no database handle")
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	if err != nil {
		return nil, err
	}
	return &repo{
		db: gormDB,
	}, nil
}

func (r *repo) CreateAsset(ctx context.Context, asset *entities.VideoAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *repo) FindAssetById(ctx context.Context, id string) (*entities.VideoAsset, error) {
	asset := &entities.VideoAsset{}
	err := r.db.WithContext(ctx).First(asset, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// ListAssets returns one page of assets, newest first. Asset ids are
// time-derived so ordering by id matches ordering by creation.
func (r *repo) ListAssets(ctx context.Context, offset, limit int) ([]*entities.VideoAsset, int64, error) {
	var assets []*entities.VideoAsset
	var total int64

	db := r.db.WithContext(ctx).Model(&entities.VideoAsset{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("id DESC").Offset(offset).Limit(limit).Find(&assets).Error
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

func (r *repo) CreateJob(ctx context.Context, job *entities.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.db.WithContext(ctx).First(job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repo) UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entities.Job{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repo) CompleteJob(ctx context.Context, id uuid.UUID, assetID string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   constant.JobStatusCompleted,
			"asset_id": assetID,
		}).Error
}

func (r *repo) FailJob(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": constant.JobStatusFailed,
			"error":  reason,
		}).Error
}
