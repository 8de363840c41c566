package service

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/rs/zerolog"

	"reelstream/constant"
	"reelstream/entities"
	"reelstream/pkg/naming"
)

// Fixed encoding presets. Every chunk of every asset is produced in all
// three, lowest first.
var qualities = []entities.Quality{
	{Name: "low", Width: 480, Height: 270, VideoBitrateKbps: 400, AudioBitrateKbps: 64},
	{Name: "medium", Width: 640, Height: 360, VideoBitrateKbps: 800, AudioBitrateKbps: 96},
	{Name: "high", Width: 1280, Height: 720, VideoBitrateKbps: 2500, AudioBitrateKbps: 128},
}

// Qualities returns the fixed preset list, lowest quality first.
func Qualities() []entities.Quality {
	out := make([]entities.Quality, len(qualities))
	copy(out, qualities)
	return out
}

// NumberOfChunks is ceil(duration / chunk duration).
func NumberOfChunks(duration float64) int {
	return int(math.Ceil(duration / constant.ChunkDuration.Seconds()))
}

// ChunkPlan lays out the time-aligned chunk sequence for a source of the
// given duration. Every chunk spans the target duration except the last,
// which covers whatever remains.
func ChunkPlan(duration float64) []entities.Chunk {
	target := constant.ChunkDuration.Seconds()
	n := NumberOfChunks(duration)
	chunks := make([]entities.Chunk, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * target
		chunks = append(chunks, entities.Chunk{
			Index:     i,
			StartTime: start,
			Duration:  math.Min(target, duration-start),
		})
	}
	return chunks
}

// chunkKey identifies one (quality, index) encode.
type chunkKey struct {
	Quality string
	Index   int
}

// transcodeChunks encodes every (quality, index) pair into outputDir. A
// single chunk's failure is logged and the loop continues; the returned set
// holds the pairs that failed so incomplete representations can be dropped
// before the manifest is built.
func transcodeChunks(ctx context.Context, inputFilepath, outputDir, videoID string, duration float64) map[chunkKey]bool {
	target := constant.ChunkDuration.Seconds()
	failed := make(map[chunkKey]bool)

	for _, quality := range qualities {
		for i := 0; i < NumberOfChunks(duration); i++ {
			start := float64(i) * target
			chunkPath := filepath.Join(outputDir, naming.ChunkFile(videoID, quality.Name, i))
			if err := transcodeChunk(ctx, inputFilepath, chunkPath, start, math.Min(target, duration-start), quality); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).
					Str("quality", quality.Name).
					Int("index", i).
					Msg("failed to encode chunk")
				failed[chunkKey{Quality: quality.Name, Index: i}] = true
				continue
			}
			zerolog.Ctx(ctx).Debug().
				Str("quality", quality.Name).
				Int("index", i).
				Msg("encoded chunk")
		}
	}

	return failed
}

// transcodeChunk encodes one chunk. The GOP settings force a keyframe at the
// chunk boundary and keep the stream free of B-frames and scene cuts, so
// every chunk file is independently decodable and a later zero-frame remux
// yields a valid initialization segment.
func transcodeChunk(ctx context.Context, inputFilepath, outputPath string, start, duration float64, quality entities.Quality) error {
	args := []string{
		"-ss", formatSeconds(start),
		"-i", inputFilepath,
		"-t", formatSeconds(duration),
		"-vf", fmt.Sprintf("scale=w=%d:h=%d", quality.Width, quality.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", fmt.Sprintf("%dk", quality.VideoBitrateKbps),
		"-g", "48",
		"-keyint_min", "48",
		"-sc_threshold", "0",
		"-bf", "0",
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", quality.AudioBitrateKbps),
		"-movflags", "+faststart",
		"-f", "mp4",
		"-y", outputPath,
	}

	output, err := execCommand(ctx, "ffmpeg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrChunkEncodeFailed, err, output)
	}
	return nil
}

// createThumbnail grabs a single frame at the source midpoint. Failures are
// tolerated by the caller; the asset keeps its thumbnail reference either
// way.
func createThumbnail(ctx context.Context, inputFilepath, outputPath string, duration float64) error {
	args := []string{
		"-ss", formatSeconds(duration / 2),
		"-i", inputFilepath,
		"-vframes", "1",
		"-s", "640x360",
		"-y", outputPath,
	}

	output, err := execCommand(ctx, "ffmpeg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %v: %s", err, output)
	}
	return nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
