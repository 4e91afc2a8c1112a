// Package audio groups the waveform processing used before scoring.
//
// Sub-packages:
//
//   - wavio: WAV decoding and encoding to float32 channels
//   - resampler: sample rate conversion of mono waveforms
//   - fbank: log mel filterbank features, batch and streaming
package audio
