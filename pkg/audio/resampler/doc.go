// Package resampler converts mono float32 waveforms between sample rates.
//
// It wraps the pure Go SoX-style resampler from
// github.com/tphakala/go-audio-resampling with the high quality preset, so
// no C library is needed.
//
// Example usage:
//
//	out, err := resampler.Resample(samples, 44100, 16000)
//	if err != nil {
//	    return err
//	}
package resampler
