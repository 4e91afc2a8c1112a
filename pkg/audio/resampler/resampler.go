package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono samples recorded at srcRate to dstRate. Samples
// are expected in [-1, 1]; the result is clipped to the same range. When the
// rates are equal the input is returned unchanged.
func Resample(samples []float32, srcRate, dstRate int) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create %d -> %d: %w", srcRate, dstRate, err)
	}

	in := make([]float64, len(samples))
	for i, v := range samples {
		in[i] = float64(v)
	}
	res, err := r.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}

	out := make([]float32, len(res))
	for i, v := range res {
		out[i] = float32(max(-1, min(1, v)))
	}
	return out, nil
}

// OutputLength returns the nominal number of samples Resample produces for
// n input samples.
func OutputLength(n, srcRate, dstRate int) int {
	if srcRate <= 0 {
		return 0
	}
	return int(int64(n) * int64(dstRate) / int64(srcRate))
}
