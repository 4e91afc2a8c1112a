// Package fbank computes log mel filterbank features from PCM audio, either
// over a whole buffer ([Extractor.Extract]) or incrementally as samples
// arrive ([Online]).
//
// Framing follows the Kaldi "snip edges" convention: frame t covers samples
// [t*HopSize, t*HopSize+WindowSize) and a partial trailing window is never
// emitted, so both entry points produce identical frames for the same audio.
//
// Default parameters:
//
//	SampleRate:  16000
//	WindowSize:  400 (25 ms)
//	HopSize:     160 (10 ms)
//	FFTSize:     512
//	NumMels:     40
//	LowFreq:     20
//	HighFreq:    7600
//	PreEmphasis: 0.97
//	Window:      povey
package fbank

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Window function names accepted by Config.Window.
const (
	WindowPovey   = "povey"
	WindowHamming = "hamming"
	WindowHanning = "hanning"
)

// energyFloor keeps the log away from -Inf on silent frames.
const energyFloor = 1e-10

// Config controls mel filterbank extraction parameters.
type Config struct {
	SampleRate  int     `yaml:"sample_rate"`  // audio sample rate in Hz
	WindowSize  int     `yaml:"window_size"`  // window length in samples
	HopSize     int     `yaml:"hop_size"`     // hop length in samples
	FFTSize     int     `yaml:"fft_size"`     // FFT size, power of two >= WindowSize
	NumMels     int     `yaml:"num_mels"`     // number of mel bins
	LowFreq     float64 `yaml:"low_freq"`     // lowest mel frequency in Hz
	HighFreq    float64 `yaml:"high_freq"`    // highest mel frequency in Hz; <= 0 is relative to Nyquist
	PreEmphasis float64 `yaml:"pre_emphasis"` // pre-emphasis coefficient
	Window      string  `yaml:"window"`       // povey, hamming or hanning
}

// DefaultConfig returns the 16 kHz, 40-bin configuration used by the
// acoustic models.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     40,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
		Window:      WindowPovey,
	}
}

// Validate checks that the configuration describes a usable filterbank.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("fbank: sample rate must be positive, got %d", c.SampleRate)
	case c.WindowSize <= 0 || c.HopSize <= 0:
		return fmt.Errorf("fbank: window %d and hop %d must be positive", c.WindowSize, c.HopSize)
	case c.FFTSize < c.WindowSize || c.FFTSize&(c.FFTSize-1) != 0:
		return fmt.Errorf("fbank: fft size %d must be a power of two >= window %d", c.FFTSize, c.WindowSize)
	case c.NumMels <= 0:
		return fmt.Errorf("fbank: num mels must be positive, got %d", c.NumMels)
	}
	nyquist := float64(c.SampleRate) / 2
	if high := c.highFreq(); c.LowFreq < 0 || high <= c.LowFreq || high > nyquist {
		return fmt.Errorf("fbank: bad frequency range [%g, %g] for nyquist %g", c.LowFreq, high, nyquist)
	}
	switch c.Window {
	case WindowPovey, WindowHamming, WindowHanning, "":
	default:
		return fmt.Errorf("fbank: unknown window %q", c.Window)
	}
	return nil
}

// highFreq resolves a non-positive HighFreq as an offset from Nyquist.
func (c Config) highFreq() float64 {
	if c.HighFreq <= 0 {
		return float64(c.SampleRate)/2 + c.HighFreq
	}
	return c.HighFreq
}

// NumFrames returns the number of frames produced from n samples.
func (c Config) NumFrames(n int) int {
	if n < c.WindowSize {
		return 0
	}
	return (n-c.WindowSize)/c.HopSize + 1
}

// Extractor holds the precomputed window and mel filterbank.
// An Extractor is immutable and safe for concurrent use.
type Extractor struct {
	cfg    Config
	window []float64
	bank   melBank
}

// New creates an Extractor. It returns an error if cfg is invalid.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:    cfg,
		window: windowFunc(cfg.Window, cfg.WindowSize),
		bank:   newMelBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.highFreq()),
	}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Dim returns the feature dimension (number of mel bins).
func (e *Extractor) Dim() int { return e.cfg.NumMels }

// Extract computes log mel filterbank features from normalized float32
// samples. The result has Config.NumFrames(len(pcm)) rows.
func (e *Extractor) Extract(pcm []float32) [][]float32 {
	n := e.cfg.NumFrames(len(pcm))
	out := make([][]float32, n)
	s := e.newScratch()
	for t := range out {
		start := t * e.cfg.HopSize
		out[t] = e.frame(pcm[start:start+e.cfg.WindowSize], s)
	}
	return out
}

// scratch holds per-goroutine working buffers. fourier.FFT keeps its own
// work area and must not be shared.
type scratch struct {
	fft   *fourier.FFT
	buf   []float64
	coef  []complex128
	power []float64
}

func (e *Extractor) newScratch() *scratch {
	n := e.cfg.FFTSize
	return &scratch{
		fft:   fourier.NewFFT(n),
		buf:   make([]float64, n),
		coef:  make([]complex128, n/2+1),
		power: make([]float64, n/2+1),
	}
}

// frame computes one feature vector from exactly WindowSize samples.
func (e *Extractor) frame(samples []float32, s *scratch) []float32 {
	cfg := e.cfg

	// DC removal, pre-emphasis (first sample against itself) and window.
	var mean float64
	for _, v := range samples {
		mean += float64(v)
	}
	mean /= float64(len(samples))
	prev := float64(samples[0]) - mean
	for i, v := range samples {
		x := float64(v) - mean
		y := x - cfg.PreEmphasis*prev
		prev = x
		s.buf[i] = y * e.window[i]
	}
	clear(s.buf[len(samples):])

	s.fft.Coefficients(s.coef, s.buf)
	for k, c := range s.coef {
		s.power[k] = real(c)*real(c) + imag(c)*imag(c)
	}

	out := make([]float32, cfg.NumMels)
	for m, f := range e.bank {
		out[m] = float32(math.Log(math.Max(f.apply(s.power), energyFloor)))
	}
	return out
}
