package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"reelstream/pkg/naming"
)

// fragmentFlags produce a fragmented container whose moov carries only the
// codec setup data, no media samples.
const fragmentFlags = "empty_moov+default_base_moof+frag_keyframe"

// extractInitSegment derives the initialization segment of a quality by a
// zero-frame remux of that quality's first chunk.
func extractInitSegment(ctx context.Context, chunkPath, outputPath string) error {
	args := []string{
		"-i", chunkPath,
		"-c", "copy",
		"-movflags", fragmentFlags,
		"-y", outputPath,
	}

	output, err := execCommand(ctx, "ffmpeg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrInitExtractionFailed, err, output)
	}
	return nil
}

// extractAudioInitSegment derives the audio initialization segment from the
// first audio-only chunk.
func extractAudioInitSegment(ctx context.Context, audioChunkPath, outputPath string) error {
	args := []string{
		"-i", audioChunkPath,
		"-vn",
		"-c:a", "copy",
		"-movflags", fragmentFlags,
		"-y", outputPath,
	}

	output, err := execCommand(ctx, "ffmpeg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrInitExtractionFailed, err, output)
	}
	return nil
}

// ensureAudioChunks backfills the standalone per-index audio files the
// manifest layout requires. The transcoder does not produce them, so each
// one is remuxed out of the corresponding general-purpose chunk of
// sourceQuality. Corrective step, runs before init segment extraction.
func ensureAudioChunks(ctx context.Context, outputDir, videoID, sourceQuality string, numChunks int) error {
	for i := 0; i < numChunks; i++ {
		audioPath := filepath.Join(outputDir, naming.AudioChunkFile(videoID, i))
		if info, err := os.Stat(audioPath); err == nil && info.Size() > 0 {
			continue
		}

		sourcePath := filepath.Join(outputDir, naming.ChunkFile(videoID, sourceQuality, i))
		args := []string{
			"-i", sourcePath,
			"-vn",
			"-c:a", "copy",
			"-y", audioPath,
		}
		output, err := execCommand(ctx, "ffmpeg", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("audio chunk %d: ffmpeg: %v: %s", i, err, output)
		}
		zerolog.Ctx(ctx).Debug().Int("index", i).Msg("backfilled audio chunk")
	}
	return nil
}
