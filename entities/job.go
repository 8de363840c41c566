package entities

import (
	"github.com/google/uuid"
	"time"

	"reelstream/constant"
)

// Job tracks one transcode request through the queue. AssetID is filled in
// once the job completes.
type Job struct {
	ID         uuid.UUID          `json:"id"`
	AssetID    string             `json:"asset_id"`
	SourcePath string             `json:"source_path"`
	Status     constant.JobStatus `json:"status"`
	Error      string             `json:"error"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
