package entities

import (
	"fmt"
	"time"
)

// Quality is one fixed encoding preset of an asset.
type Quality struct {
	Name             string `json:"name"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	VideoBitrateKbps int    `json:"videoBitrateKbps"`
	AudioBitrateKbps int    `json:"audioBitrateKbps"`
}

// Resolution renders the preset as "WIDTHxHEIGHT" for ffmpeg scaling.
func (q Quality) Resolution() string {
	return fmt.Sprintf("%dx%d", q.Width, q.Height)
}

// Chunk is one time-aligned slice of an asset. URLs maps quality name to the
// chunk file reference for that quality; every quality listed on the asset
// has an entry for every index.
type Chunk struct {
	Index     int               `json:"index"`
	StartTime float64           `json:"startTime"`
	Duration  float64           `json:"duration"`
	URLs      map[string]string `json:"urls"`
}

// VideoAsset is the per-asset metadata record. It is created once by a
// completed transcode job and immutable afterwards.
type VideoAsset struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Thumbnail   string    `json:"thumbnail"`
	Manifest    string    `json:"dashManifest"`
	Qualities   []Quality `json:"qualities" gorm:"serializer:json"`
	Chunks      []Chunk   `json:"chunks" gorm:"serializer:json"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (VideoAsset) TableName() string {
	return "video_assets"
}
