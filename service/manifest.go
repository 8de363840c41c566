package service

import (
	"fmt"
	"math"
	"strings"

	"reelstream/constant"
	"reelstream/entities"
	"reelstream/pkg/naming"
)

const (
	videoCodecTag = "avc1.4D401F"
	audioCodecTag = "mp4a.40.2"

	audioSampleRate   = 44100
	audioChannelCount = 2
	audioBandwidth    = 128000
)

// BuildManifest assembles the DASH MPD for an asset: one static period, one
// video adaptation set carrying a representation per quality, one audio
// adaptation set. Each segment list opens with the quality's initialization
// segment followed by the chunk files in index order. References are
// relative; the base address prefix is applied once at the document root.
func BuildManifest(videoID string, duration float64, chunks []entities.Chunk, qualityList []entities.Quality, baseURL string) string {
	segmentDurationMs := int(constant.ChunkDuration.Milliseconds())

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
		`xsi:schemaLocation="urn:mpeg:dash:schema:mpd:2011 DASH-MPD.xsd" ` +
		`profiles="urn:mpeg:dash:profile:isoff-live:2011" ` +
		`type="static" ` +
		`minBufferTime="PT2S" ` +
		fmt.Sprintf(`mediaPresentationDuration="PT%dS">`, int(math.Round(duration))) + "\n")
	b.WriteString(fmt.Sprintf("    <BaseURL>%s</BaseURL>\n", baseURL))
	b.WriteString(`    <Period id="1" start="PT0S">` + "\n")

	b.WriteString(`        <AdaptationSet mimeType="video/mp4" contentType="video" segmentAlignment="true" bitstreamSwitching="true">` + "\n")
	for _, quality := range qualityList {
		b.WriteString(fmt.Sprintf(`            <Representation id="%s" bandwidth="%d" width="%d" height="%d" codecs="%s">`,
			quality.Name, quality.VideoBitrateKbps*1000, quality.Width, quality.Height, videoCodecTag) + "\n")
		b.WriteString(fmt.Sprintf(`                <SegmentList timescale="1000" duration="%d">`, segmentDurationMs) + "\n")
		b.WriteString(fmt.Sprintf(`                    <Initialization sourceURL="%s" />`, naming.InitSegmentFile(quality.Name)) + "\n")
		for _, chunk := range chunks {
			b.WriteString(fmt.Sprintf(`                    <SegmentURL media="%s" />`, naming.ChunkFile(videoID, quality.Name, chunk.Index)) + "\n")
		}
		b.WriteString(`                </SegmentList>` + "\n")
		b.WriteString(`            </Representation>` + "\n")
	}
	b.WriteString(`        </AdaptationSet>` + "\n")

	b.WriteString(`        <AdaptationSet mimeType="audio/mp4" contentType="audio" segmentAlignment="true">` + "\n")
	b.WriteString(fmt.Sprintf(`            <Representation id="audio" bandwidth="%d" codecs="%s" audioSamplingRate="%d">`,
		audioBandwidth, audioCodecTag, audioSampleRate) + "\n")
	b.WriteString(fmt.Sprintf(`                <AudioChannelConfiguration schemeIdUri="urn:mpeg:dash:23003:3:audio_channel_configuration:2011" value="%d" />`,
		audioChannelCount) + "\n")
	b.WriteString(fmt.Sprintf(`                <SegmentList timescale="1000" duration="%d">`, segmentDurationMs) + "\n")
	b.WriteString(fmt.Sprintf(`                    <Initialization sourceURL="%s" />`, naming.AudioInitFile) + "\n")
	for _, chunk := range chunks {
		b.WriteString(fmt.Sprintf(`                    <SegmentURL media="%s" />`, naming.AudioChunkFile(videoID, chunk.Index)) + "\n")
	}
	b.WriteString(`                </SegmentList>` + "\n")
	b.WriteString(`            </Representation>` + "\n")
	b.WriteString(`        </AdaptationSet>` + "\n")

	b.WriteString(`    </Period>` + "\n")
	b.WriteString(`</MPD>` + "\n")

	return b.String()
}
