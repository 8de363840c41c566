package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"reelstream/config"
	"reelstream/constant"
	"reelstream/dto"
	"reelstream/entities"
	"reelstream/pkg/naming"
	"reelstream/repository"
)

type Service interface {
	Process(ctx context.Context, message dto.JobMessage) (*entities.VideoAsset, error)
}

type service struct {
	repo repository.AssetRepository
	cfg  *config.Config
}

func NewService(repo repository.AssetRepository, cfg *config.Config) Service {
	return &service{
		repo: repo,
		cfg:  cfg,
	}
}

// Process runs one transcode job end to end: probe, chunk encodes across all
// qualities, audio backfill, init segment extraction, manifest generation
// and asset persistence. Qualities whose chunk set came out incomplete are
// dropped so the manifest never references a file that does not exist.
func (s *service) Process(ctx context.Context, message dto.JobMessage) (asset *entities.VideoAsset, err error) {
	zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Str("video_path", message.VideoPath).Msg("processing job")

	job, err := s.repo.FindJobById(ctx, message.JobId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to find job by id")
		return nil, err
	}

	if job.Status != constant.JobStatusPending {
		zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Msg("job is not pending")
		return nil, nil
	}

	if err := s.repo.UpdateStatusJob(ctx, constant.JobStatusProcessing, message.JobId); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to update job status")
		return nil, err
	}

	defer func() {
		if err != nil {
			if errors.Is(err, ErrNonRetryable) {
				if updateErr := s.repo.FailJob(ctx, message.JobId, err.Error()); updateErr != nil {
					zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
				}
			} else {
				if updateErr := s.repo.UpdateStatusJob(ctx, constant.JobStatusPending, message.JobId); updateErr != nil {
					zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
				}
			}
		}
	}()

	videoID := strconv.FormatInt(time.Now().UnixMilli(), 10)
	outputDir := filepath.Join(s.cfg.Media.ChunksDir, videoID)
	thumbnailDir := filepath.Join(s.cfg.Media.ThumbnailDir, videoID)

	if err = os.MkdirAll(outputDir, os.ModePerm); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create output directory")
		return nil, errors.Join(ErrNonRetryable, err)
	}
	if err = os.MkdirAll(thumbnailDir, os.ModePerm); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create thumbnail directory")
		return nil, errors.Join(ErrNonRetryable, err)
	}

	zerolog.Ctx(ctx).Info().Str("video_id", videoID).Msg("probing source")
	probe, err := Probe(ctx, message.VideoPath)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to probe source")
		return nil, errors.Join(ErrNonRetryable, err)
	}

	zerolog.Ctx(ctx).Info().
		Float64("duration", probe.Duration).
		Int("width", probe.Width).
		Int("height", probe.Height).
		Msg("transcoding chunks")
	failed := transcodeChunks(ctx, message.VideoPath, outputDir, videoID, probe.Duration)

	// Thumbnail is taken at the source midpoint regardless of how the chunk
	// encodes went.
	if thumbErr := createThumbnail(ctx, message.VideoPath, filepath.Join(thumbnailDir, naming.ThumbnailFile), probe.Duration); thumbErr != nil {
		zerolog.Ctx(ctx).Error().Err(thumbErr).Msg("failed to create thumbnail")
	}

	numChunks := NumberOfChunks(probe.Duration)
	kept := completeQualities(failed, numChunks)
	if len(kept) == 0 {
		err = errors.Join(ErrNonRetryable, errors.New("all qualities incomplete"))
		zerolog.Ctx(ctx).Error().Err(err).Msg("no usable representation")
		return nil, err
	}
	for _, quality := range qualities {
		if !containsQuality(kept, quality.Name) {
			zerolog.Ctx(ctx).Warn().Str("quality", quality.Name).Msg("dropping incomplete representation")
		}
	}

	audioSource := kept[0].Name
	for _, quality := range kept {
		if quality.Name == "medium" {
			audioSource = quality.Name
			break
		}
	}
	if err = ensureAudioChunks(ctx, outputDir, videoID, audioSource, numChunks); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to backfill audio chunks")
		return nil, errors.Join(ErrNonRetryable, err)
	}

	kept, err = s.extractInitSegments(ctx, outputDir, videoID, kept)
	if err != nil {
		return nil, err
	}

	chunks := ChunkPlan(probe.Duration)
	for i := range chunks {
		urls := make(map[string]string, len(kept))
		for _, quality := range kept {
			urls[quality.Name] = fmt.Sprintf("/chunks/%s/%s", videoID, naming.ChunkFile(videoID, quality.Name, chunks[i].Index))
		}
		chunks[i].URLs = urls
	}

	manifest := BuildManifest(videoID, probe.Duration, chunks, kept, fmt.Sprintf("%s/chunks/%s/", s.cfg.Media.BaseURL, videoID))
	if err = os.WriteFile(filepath.Join(outputDir, naming.ManifestFile), []byte(manifest), 0644); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to write manifest")
		return nil, errors.Join(ErrNonRetryable, err)
	}

	title := message.Title
	if title == "" {
		title = "Untitled Video"
	}
	asset = &entities.VideoAsset{
		ID:          videoID,
		Title:       title,
		Description: message.Description,
		Duration:    probe.Duration,
		Thumbnail:   fmt.Sprintf("/thumbnail/%s/%s", videoID, naming.ThumbnailFile),
		Manifest:    fmt.Sprintf("/chunks/%s/%s", videoID, naming.ManifestFile),
		Qualities:   kept,
		Chunks:      chunks,
		CreatedAt:   time.Now(),
	}
	if err = s.repo.CreateAsset(ctx, asset); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to persist asset")
		return nil, err
	}

	if s.cfg.Storage != nil {
		zerolog.Ctx(ctx).Info().Msg("publishing output to object storage")
		if err = uploadDirectory(ctx, s.cfg.Storage, s.cfg.MinIOBucket, outputDir, "chunks/"+videoID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to upload chunks")
			return nil, err
		}
		if err = uploadDirectory(ctx, s.cfg.Storage, s.cfg.MinIOBucket, thumbnailDir, "thumbnail/"+videoID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to upload thumbnail")
			return nil, err
		}
	}

	if err = s.repo.CompleteJob(ctx, message.JobId, videoID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to update job status")
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Str("video_id", videoID).Msg("job completed")
	return asset, nil
}

// extractInitSegments derives one init segment per kept quality plus the
// audio init segment. A quality whose extraction fails cannot be decoded by
// any client, so it is dropped rather than referenced.
func (s *service) extractInitSegments(ctx context.Context, outputDir, videoID string, kept []entities.Quality) ([]entities.Quality, error) {
	usable := make([]entities.Quality, 0, len(kept))
	for _, quality := range kept {
		chunkPath := filepath.Join(outputDir, naming.ChunkFile(videoID, quality.Name, 0))
		initPath := filepath.Join(outputDir, naming.InitSegmentFile(quality.Name))
		if err := extractInitSegment(ctx, chunkPath, initPath); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("quality", quality.Name).Msg("dropping representation without init segment")
			continue
		}
		usable = append(usable, quality)
	}
	if len(usable) == 0 {
		return nil, errors.Join(ErrNonRetryable, ErrInitExtractionFailed)
	}

	audioChunkPath := filepath.Join(outputDir, naming.AudioChunkFile(videoID, 0))
	audioInitPath := filepath.Join(outputDir, naming.AudioInitFile)
	if err := extractAudioInitSegment(ctx, audioChunkPath, audioInitPath); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to extract audio init segment")
		return nil, errors.Join(ErrNonRetryable, err)
	}

	return usable, nil
}

// completeQualities filters the preset list down to qualities whose every
// chunk index encoded successfully.
func completeQualities(failed map[chunkKey]bool, numChunks int) []entities.Quality {
	kept := make([]entities.Quality, 0, len(qualities))
	for _, quality := range qualities {
		complete := true
		for i := 0; i < numChunks; i++ {
			if failed[chunkKey{Quality: quality.Name, Index: i}] {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, quality)
		}
	}
	return kept
}

func containsQuality(list []entities.Quality, name string) bool {
	for _, quality := range list {
		if quality.Name == name {
			return true
		}
	}
	return false
}

func uploadDirectory(ctx context.Context, client *minio.Client, bucket, localPath, remotePrefix string) error {
	return filepath.Walk(localPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relativePath, err := filepath.Rel(localPath, path)
		if err != nil {
			return err
		}

		objectName := filepath.ToSlash(filepath.Join(remotePrefix, relativePath))
		_, uploadErr := client.FPutObject(ctx, bucket, objectName, path, minio.PutObjectOptions{})
		return uploadErr
	})
}
