package service

import "errors"

// ErrNonRetryable marks job failures that must not be redelivered.
var ErrNonRetryable = errors.New("non-retryable error")

var (
	// ErrMediaUnreadable means the source file has no video stream or its
	// metadata cannot be parsed. Fatal for the whole job.
	ErrMediaUnreadable = errors.New("media unreadable")

	// ErrChunkEncodeFailed marks a single chunk encode failure. The
	// transcode loop continues; the affected quality is dropped from the
	// asset if any of its chunks is missing.
	ErrChunkEncodeFailed = errors.New("chunk encode failed")

	// ErrInitExtractionFailed means a quality has no initialization segment
	// and therefore cannot appear in the manifest.
	ErrInitExtractionFailed = errors.New("init segment extraction failed")
)
