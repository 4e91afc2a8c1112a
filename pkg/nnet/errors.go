package nnet

import "errors"

// Sentinel errors. Callers wrap these with context and test with errors.Is.
var (
	// ErrMissingInput means a side input (waveform, voicing mask) for an
	// utterance is absent. The utterance is skipped and counted.
	ErrMissingInput = errors.New("nnet: missing input")

	// ErrTooShort means an utterance has fewer frames than one chunk, so
	// its output would be empty.
	ErrTooShort = errors.New("nnet: utterance shorter than one chunk")

	// ErrDimensionMismatch is an internal consistency violation: a frame
	// count, vector dimension or engine row count does not match.
	ErrDimensionMismatch = errors.New("nnet: dimension mismatch")

	// ErrEngineFailure wraps any error returned by a scoring engine.
	ErrEngineFailure = errors.New("nnet: engine failure")

	// ErrConfigInconsistent is returned for invalid option combinations,
	// detected before any processing starts.
	ErrConfigInconsistent = errors.New("nnet: inconsistent configuration")
)
