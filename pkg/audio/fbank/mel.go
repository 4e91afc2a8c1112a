package fbank

import "math"

// windowFunc returns the named analysis window of length n.
func windowFunc(name string, n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	a := 2 * math.Pi / float64(n-1)
	for i := range w {
		switch name {
		case WindowHamming:
			w[i] = 0.54 - 0.46*math.Cos(a*float64(i))
		case WindowHanning:
			w[i] = 0.5 - 0.5*math.Cos(a*float64(i))
		default: // povey: hanning raised to 0.85
			w[i] = math.Pow(0.5-0.5*math.Cos(a*float64(i)), 0.85)
		}
	}
	return w
}

// melScale converts Hz to mel using the natural-log formula.
func melScale(hz float64) float64 {
	return 1127.0 * math.Log(1.0+hz/700.0)
}

// inverseMelScale converts mel back to Hz.
func inverseMelScale(mel float64) float64 {
	return 700.0 * (math.Exp(mel/1127.0) - 1.0)
}

// melFilter is one triangular filter stored as a contiguous run of
// non-zero weights starting at FFT bin first.
type melFilter struct {
	first   int
	weights []float64
}

func (f melFilter) apply(power []float64) float64 {
	var sum float64
	for i, w := range f.weights {
		sum += w * power[f.first+i]
	}
	return sum
}

type melBank []melFilter

// newMelBank builds numMels triangular filters equally spaced on the mel
// scale between lowFreq and highFreq. Weights are evaluated at the mel
// value of each FFT bin centre, so no filter collapses to zero width.
func newMelBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) melBank {
	numBins := fftSize / 2
	binHz := float64(sampleRate) / float64(fftSize)
	lowMel, highMel := melScale(lowFreq), melScale(highFreq)
	delta := (highMel - lowMel) / float64(numMels+1)

	bank := make(melBank, numMels)
	for m := range bank {
		left := lowMel + float64(m)*delta
		center := left + delta
		right := center + delta

		first, last := -1, -1
		weights := make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			mel := melScale(binHz * float64(k))
			var w float64
			switch {
			case mel > left && mel <= center:
				w = (mel - left) / (center - left)
			case mel > center && mel < right:
				w = (right - mel) / (right - center)
			}
			if w > 0 {
				if first < 0 {
					first = k
				}
				last = k
				weights[k] = w
			}
		}
		if first < 0 {
			// Filter narrower than one bin: use the nearest bin.
			k := min(int(math.Round(inverseMelScale(center)/binHz)), numBins-1)
			bank[m] = melFilter{first: k, weights: []float64{1}}
			continue
		}
		bank[m] = melFilter{first: first, weights: weights[first : last+1]}
	}
	return bank
}
