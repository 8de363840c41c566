package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// execCommand is swapped out in tests so the pipeline can run without the
// ffmpeg tools installed.
var execCommand = exec.CommandContext

// ProbeResult carries the container metadata the pipeline needs from a
// source file.
type ProbeResult struct {
	Duration float64
	Width    int
	Height   int
	Bitrate  int64
}

// Probe reads duration, resolution and bitrate from the source container.
func Probe(ctx context.Context, path string) (*ProbeResult, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	output, err := execCommand(ctx, "ffprobe", args...).Output()
	if err != nil {
		return nil, errors.Join(ErrMediaUnreadable, fmt.Errorf("ffprobe %s: %w", path, err))
	}

	return parseProbeOutput(output)
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

func parseProbeOutput(output []byte) (*ProbeResult, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, errors.Join(ErrMediaUnreadable, err)
	}

	result := &ProbeResult{}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || duration <= 0 {
		return nil, errors.Join(ErrMediaUnreadable, fmt.Errorf("unparsable duration %q", probe.Format.Duration))
	}
	result.Duration = duration

	if probe.Format.BitRate != "" {
		if bitrate, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
			result.Bitrate = bitrate
		}
	}

	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			break
		}
	}
	if result.Width == 0 || result.Height == 0 {
		return nil, errors.Join(ErrMediaUnreadable, errors.New("no video stream found"))
	}

	return result, nil
}
