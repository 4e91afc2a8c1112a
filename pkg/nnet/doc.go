// Package nnet turns a feature sequence into a dense per-frame likelihood
// matrix by driving a chunked scoring engine.
//
// # Architecture
//
// Scoring one utterance runs four steps:
//
//  1. [SelectVoiced] keeps the voiced frames of the feature matrix.
//  2. [ChunkConfig.Plan] lays out fixed-width, context-padded windows, one
//     per full chunk. Context that falls outside the sequence is filled by
//     repeating the first or last frame ([ClampFrame]).
//  3. [SelectAuxiliary] picks the auxiliary (ivector) frame for the
//     utterance and [Broadcast] repeats it for every input row.
//  4. [Scorer.Run] calls the [Engine] once per window, subtracts log priors,
//     applies the acoustic scale and writes chunk c into output rows
//     [c*ChunkSize, (c+1)*ChunkSize).
//
// Frames after the last full chunk are never scored, so the output has
// exactly NumChunks*ChunkSize rows.
//
// # Errors
//
// All failures wrap one of the sentinel errors ([ErrMissingInput],
// [ErrTooShort], [ErrDimensionMismatch], [ErrEngineFailure],
// [ErrConfigInconsistent]). Test them with errors.Is.
//
// # Thread Safety
//
// Functions in this package are pure. A [Scorer] holds no mutable state of
// its own; it is as safe for concurrent use as the Engine it wraps.
package nnet
