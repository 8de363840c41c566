package constant

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

// ChunkDuration is the target duration of every chunk except possibly the
// last one, which covers whatever remains of the source.
const ChunkDuration = 3 * time.Second

// QueueCooldown is how long the transcode queue idles between jobs so the
// external encoder can release its resources.
const QueueCooldown = 1 * time.Second

// PreloadWindow is how many chunk indices past the current one the client
// preloads once the playback window opens.
const PreloadWindow = 3

// PreloadDelay is how long an item must have been playing before the client
// preloads upcoming chunks and switches to adaptive streaming.
const PreloadDelay = 2 * time.Second

// MaxCachedChunks caps the number of chunk files kept in the client cache.
const MaxCachedChunks = 10

// FetchTimeout bounds every client chunk download.
const FetchTimeout = 15 * time.Second
