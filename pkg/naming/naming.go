// Package naming holds the file naming convention shared by the server-side
// pipeline and the client-side chunk cache. Besides the manifest contents it
// is the only coupling between the two halves, so both import it instead of
// formatting names by hand.
package naming

import "fmt"

const (
	ManifestFile  = "manifest.mpd"
	ThumbnailFile = "thumbnail.jpg"
	AudioInitFile = "init-audio.mp4"
)

// ChunkFile names the chunk at index for a given quality.
func ChunkFile(videoID, quality string, index int) string {
	return fmt.Sprintf("%s_%s_chunk_%d.mp4", videoID, quality, index)
}

// AudioChunkFile names the standalone audio-only chunk at index.
func AudioChunkFile(videoID string, index int) string {
	return fmt.Sprintf("%s_audio_chunk_%d.mp4", videoID, index)
}

// InitSegmentFile names the initialization segment of a quality.
func InitSegmentFile(quality string) string {
	return fmt.Sprintf("init-%s.mp4", quality)
}
