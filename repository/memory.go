package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reelstream/constant"
	"reelstream/entities"
)

// memoryRepo keeps asset and job records in process memory. It backs the
// standalone mode where no database is configured; records live exactly as
// long as the server does.
type memoryRepo struct {
	mu     sync.RWMutex
	assets map[string]*entities.VideoAsset
	jobs   map[uuid.UUID]*entities.Job
}

func NewMemoryRepo() AssetRepository {
	return &memoryRepo{
		assets: make(map[string]*entities.VideoAsset),
		jobs:   make(map[uuid.UUID]*entities.Job),
	}
}

func (r *memoryRepo) CreateAsset(ctx context.Context, asset *entities.VideoAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *asset
	r.assets[asset.ID] = &stored
	return nil
}

func (r *memoryRepo) FindAssetById(ctx context.Context, id string) (*entities.VideoAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *asset
	return &found, nil
}

func (r *memoryRepo) ListAssets(ctx context.Context, offset, limit int) ([]*entities.VideoAsset, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.assets))
	for id := range r.assets {
		ids = append(ids, id)
	}
	// Ids are time-derived, so descending id order is creation order.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	total := int64(len(ids))
	if offset >= len(ids) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	assets := make([]*entities.VideoAsset, 0, end-offset)
	for _, id := range ids[offset:end] {
		found := *r.assets[id]
		assets = append(assets, &found)
	}
	return assets, total, nil
}

func (r *memoryRepo) CreateJob(ctx context.Context, job *entities.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *job
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	r.jobs[job.ID] = &stored
	return nil
}

func (r *memoryRepo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *job
	return &found, nil
}

func (r *memoryRepo) UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) CompleteJob(ctx context.Context, id uuid.UUID, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	job.Status = constant.JobStatusCompleted
	job.AssetID = assetID
	job.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) FailJob(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	job.Status = constant.JobStatusFailed
	job.Error = reason
	job.UpdatedAt = time.Now()
	return nil
}
