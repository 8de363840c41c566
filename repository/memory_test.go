package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reelstream/constant"
	"reelstream/entities"
)

func TestNewRepoRequiresDatabase(t *testing.T) {
	repo, err := NewRepo(nil)
	require.Error(t, err)
	assert.Nil(t, repo)
}

func TestMemoryRepoAssets(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	_, err := repo.FindAssetById(ctx, "1712000000000")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	for _, id := range []string{"1712000000001", "1712000000003", "1712000000002"} {
		require.NoError(t, repo.CreateAsset(ctx, &entities.VideoAsset{ID: id, Title: "clip " + id}))
	}

	found, err := repo.FindAssetById(ctx, "1712000000002")
	require.NoError(t, err)
	assert.Equal(t, "clip 1712000000002", found.Title)

	// Newest first, paged.
	assets, total, err := repo.ListAssets(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, assets, 2)
	assert.Equal(t, "1712000000003", assets[0].ID)
	assert.Equal(t, "1712000000002", assets[1].ID)

	assets, total, err = repo.ListAssets(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, assets, 1)
	assert.Equal(t, "1712000000001", assets[0].ID)

	assets, _, err = repo.ListAssets(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestMemoryRepoJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	id := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, &entities.Job{
		ID:         id,
		SourcePath: "/videos/source.mp4",
		Status:     constant.JobStatusPending,
	}))

	require.NoError(t, repo.UpdateStatusJob(ctx, constant.JobStatusProcessing, id))
	job, err := repo.FindJobById(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusProcessing, job.Status)

	require.NoError(t, repo.CompleteJob(ctx, id, "1712000000000"))
	job, err = repo.FindJobById(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusCompleted, job.Status)
	assert.Equal(t, "1712000000000", job.AssetID)

	failing := uuid.New()
	require.NoError(t, repo.CreateJob(ctx, &entities.Job{ID: failing, Status: constant.JobStatusPending}))
	require.NoError(t, repo.FailJob(ctx, failing, "source unreadable"))
	job, err = repo.FindJobById(ctx, failing)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusFailed, job.Status)
	assert.Equal(t, "source unreadable", job.Error)

	assert.ErrorIs(t, repo.UpdateStatusJob(ctx, constant.JobStatusPending, uuid.New()), gorm.ErrRecordNotFound)
}
