package dto

import "github.com/google/uuid"

// JobMessage is the queue intake payload: a source object to transcode.
type JobMessage struct {
	JobId       uuid.UUID `json:"jobId"`
	VideoPath   string    `json:"videoPath"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// ProcessRequest is the HTTP intake payload.
type ProcessRequest struct {
	VideoPath   string `json:"videoPath" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Urls carries the per-quality references of one chunk.
type Urls struct {
	Low    string `json:"low"`
	Medium string `json:"medium"`
	High   string `json:"high"`
}

// ChunkResponse is one chunk as served by the feed/detail endpoints.
type ChunkResponse struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Urls      Urls    `json:"urls"`
}

// VideoResponse is one asset as served by the feed/detail endpoints. The
// feed variant carries only FirstChunk; the detail variant carries Chunks.
type VideoResponse struct {
	Id           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Duration     float64         `json:"duration"`
	Thumbnail    string          `json:"thumbnail"`
	DashManifest string          `json:"dashManifest"`
	FirstChunk   *ChunkResponse  `json:"firstChunk,omitempty"`
	Chunks       []ChunkResponse `json:"chunks,omitempty"`
}

// FeedResponse is the paged listing envelope.
type FeedResponse struct {
	Videos      []VideoResponse `json:"videos"`
	TotalVideos int             `json:"totalVideos"`
	HasMore     bool            `json:"hasMore"`
}

// StatusResponse reports queue health.
type StatusResponse struct {
	Status       string `json:"status"`
	QueueLength  int    `json:"processingQueue"`
	IsProcessing bool   `json:"isProcessing"`
}
