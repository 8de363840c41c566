package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"reelstream/config"
	"reelstream/constant"
	"reelstream/dto"
	"reelstream/entities"
)

const defaultPageSize = 5

// HTTP exposes the feed/detail/status query surface and the process/upload
// intake over the core pipeline.
type HTTP struct {
	deps ServiceDependencies
	cfg  *config.Config
}

func NewHTTP(deps ServiceDependencies, cfg *config.Config) *HTTP {
	return &HTTP{deps: deps, cfg: cfg}
}

func (h *HTTP) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/feed", h.feed)
	api.GET("/videos/:videoId", h.video)
	api.GET("/status", h.status)
	api.POST("/process-video", h.processVideo)
	api.POST("/upload-process", h.uploadProcess)

	r.Static("/chunks", h.cfg.Media.ChunksDir)
	r.Static("/thumbnail", h.cfg.Media.ThumbnailDir)
}

func (h *HTTP) feed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	assets, total, err := h.deps.Repo.ListAssets(c.Request.Context(), page*pageSize, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed", "details": err.Error()})
		return
	}

	videos := make([]dto.VideoResponse, 0, len(assets))
	for _, asset := range assets {
		videos = append(videos, toFeedResponse(asset))
	}
	c.JSON(http.StatusOK, dto.FeedResponse{
		Videos:      videos,
		TotalVideos: int(total),
		HasMore:     int64((page+1)*pageSize) < total,
	})
}

func (h *HTTP) video(c *gin.Context) {
	asset, err := h.deps.Repo.FindAssetById(c.Request.Context(), c.Param("videoId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	c.JSON(http.StatusOK, toDetailResponse(asset))
}

func (h *HTTP) status(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{
		Status:       "running",
		QueueLength:  h.deps.Queue.Len(),
		IsProcessing: h.deps.Queue.Processing(),
	})
}

func (h *HTTP) processVideo(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Video path is required"})
		return
	}
	h.runJob(c, req.VideoPath, req.Title, req.Description, "")
}

func (h *HTTP) uploadProcess(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file uploaded"})
		return
	}

	uploadDir := filepath.Join(h.cfg.Media.VideosDir, "uploads")
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload", "details": err.Error()})
		return
	}
	uploadPath := filepath.Join(uploadDir, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, uploadPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload", "details": err.Error()})
		return
	}

	h.runJob(c, uploadPath, c.PostForm("title"), c.PostForm("description"), uploadPath)
}

// runJob records a job row, enqueues the transcode and waits on its future.
// cleanupPath, when set, is removed after processing to reclaim upload
// space.
func (h *HTTP) runJob(c *gin.Context, videoPath, title, description, cleanupPath string) {
	message := dto.JobMessage{
		JobId:       uuid.New(),
		VideoPath:   videoPath,
		Title:       title,
		Description: description,
	}
	job := &entities.Job{
		ID:         message.JobId,
		SourcePath: videoPath,
		Status:     constant.JobStatusPending,
	}
	if err := h.deps.Repo.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job", "details": err.Error()})
		return
	}

	outcome := <-h.deps.Queue.Enqueue(func(ctx context.Context) (*entities.VideoAsset, error) {
		return h.deps.TranscodeService.Process(ctx, message)
	})

	if cleanupPath != "" {
		if err := os.Remove(cleanupPath); err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", cleanupPath).Msg("failed to clean up upload")
		}
	}

	if outcome.Err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process video", "details": outcome.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       outcome.Value.ID,
		"message":  "Video processed successfully",
		"metadata": toDetailResponse(outcome.Value),
	})
}

// toFeedResponse keeps the payload minimal: only the first chunk descriptor
// is included for initial playback.
func toFeedResponse(asset *entities.VideoAsset) dto.VideoResponse {
	response := baseResponse(asset)
	if len(asset.Chunks) > 0 {
		first := toChunkResponse(asset.Chunks[0])
		response.FirstChunk = &first
	}
	return response
}

func toDetailResponse(asset *entities.VideoAsset) dto.VideoResponse {
	response := baseResponse(asset)
	response.Chunks = make([]dto.ChunkResponse, 0, len(asset.Chunks))
	for _, chunk := range asset.Chunks {
		response.Chunks = append(response.Chunks, toChunkResponse(chunk))
	}
	if len(asset.Chunks) > 0 {
		first := toChunkResponse(asset.Chunks[0])
		response.FirstChunk = &first
	}
	return response
}

func baseResponse(asset *entities.VideoAsset) dto.VideoResponse {
	return dto.VideoResponse{
		Id:           asset.ID,
		Title:        asset.Title,
		Description:  asset.Description,
		Duration:     asset.Duration,
		Thumbnail:    asset.Thumbnail,
		DashManifest: asset.Manifest,
	}
}

func toChunkResponse(chunk entities.Chunk) dto.ChunkResponse {
	return dto.ChunkResponse{
		Index:     chunk.Index,
		StartTime: chunk.StartTime,
		Duration:  chunk.Duration,
		Urls: dto.Urls{
			Low:    chunk.URLs["low"],
			Medium: chunk.URLs["medium"],
			High:   chunk.URLs["high"],
		},
	}
}
