package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"reelstream/entities"
)

func TestBuildManifest(t *testing.T) {
	chunks := ChunkPlan(5)
	manifest := BuildManifest("1712000000000", 5.2, chunks, Qualities(), "http://localhost:8080/chunks/1712000000000/")

	assert.Contains(t, manifest, `mediaPresentationDuration="PT5S"`)
	assert.Contains(t, manifest, `<BaseURL>http://localhost:8080/chunks/1712000000000/</BaseURL>`)
	assert.Contains(t, manifest, `type="static"`)

	// One representation per quality plus the audio representation.
	assert.Equal(t, 4, strings.Count(manifest, "<Representation"))
	assert.Contains(t, manifest, `<Representation id="low" bandwidth="400000" width="480" height="270" codecs="avc1.4D401F">`)
	assert.Contains(t, manifest, `<Representation id="high" bandwidth="2500000" width="1280" height="720" codecs="avc1.4D401F">`)
	assert.Contains(t, manifest, `<Representation id="audio" bandwidth="128000" codecs="mp4a.40.2" audioSamplingRate="44100">`)

	// Each segment list opens with its init segment.
	assert.Contains(t, manifest, `<Initialization sourceURL="init-low.mp4" />`)
	assert.Contains(t, manifest, `<Initialization sourceURL="init-medium.mp4" />`)
	assert.Contains(t, manifest, `<Initialization sourceURL="init-high.mp4" />`)
	assert.Contains(t, manifest, `<Initialization sourceURL="init-audio.mp4" />`)

	// Two chunks for every representation, in the shared naming convention.
	assert.Equal(t, 8, strings.Count(manifest, "<SegmentURL"))
	assert.Contains(t, manifest, `<SegmentURL media="1712000000000_medium_chunk_1.mp4" />`)
	assert.Contains(t, manifest, `<SegmentURL media="1712000000000_audio_chunk_0.mp4" />`)

	assert.Contains(t, manifest, `<SegmentList timescale="1000" duration="3000">`)
	assert.Contains(t, manifest, `<AudioChannelConfiguration schemeIdUri="urn:mpeg:dash:23003:3:audio_channel_configuration:2011" value="2" />`)
}

func TestBuildManifestDroppedQuality(t *testing.T) {
	chunks := ChunkPlan(3)
	kept := []entities.Quality{Qualities()[0], Qualities()[1]}
	manifest := BuildManifest("42", 3, chunks, kept, "/chunks/42/")

	assert.Equal(t, 3, strings.Count(manifest, "<Representation"))
	assert.NotContains(t, manifest, `id="high"`)
	assert.NotContains(t, manifest, "init-high.mp4")
}
