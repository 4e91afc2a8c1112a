// Package feature is the streaming front end of the scorer: it turns
// waveform pieces into filterbank frames and an auxiliary speaker track,
// and carries the speaker adaptation state between utterances.
//
// # Architecture
//
// An [Info] holds everything shared by all utterances (configuration,
// precomputed filterbank, initial adaptation state). For each utterance the
// caller creates a [Pipeline] with [Info.NewPipeline], installs the
// speaker's [AdaptationState], streams samples with AcceptWaveform, calls
// InputFinished and reads frames back. The updated state returned by
// Pipeline.AdaptationState is handed to the next utterance of the same
// speaker:
//
//	state := info.NewAdaptationState()
//	for _, utt := range utts {
//	    p := info.NewPipeline()
//	    p.SetAdaptationState(state)
//	    p.AcceptWaveform(rate, samples)
//	    p.InputFinished()
//	    ... read p.Frame(i), p.Auxiliary() ...
//	    state = p.AdaptationState()
//	}
//
// # Auxiliary Track
//
// The auxiliary track is a slowly varying speaker vector: the running mean
// of the speaker's features, with previous utterances of the same speaker
// folded in through the adaptation state (capped at
// AuxConfig.MaxRememberedFrames). In online mode the estimate is refreshed
// every AuxConfig.Period frames from the frames seen so far; in greedy mode
// every frame reports the estimate over all frames available.
//
// # Thread Safety
//
// Info is immutable after construction apart from SetTemplate and is safe
// for concurrent use. Pipelines and adaptation states are not.
package feature

import (
	"errors"
	"fmt"

	"github.com/haivivi/amcompute/pkg/audio/fbank"
)

// ErrSampleRate is returned when a waveform's sample rate differs from the
// pipeline's configured rate.
var ErrSampleRate = errors.New("feature: sample rate mismatch")

// Source is a read-only, growing track of frames.
type Source interface {
	// NumFramesReady returns the number of frames available so far.
	NumFramesReady() int

	// Dim returns the dimension of every frame.
	Dim() int

	// Frame returns frame i, 0 <= i < NumFramesReady(). The slice must not
	// be modified.
	Frame(i int) []float32
}

// Pipeline is a per-utterance streaming feature extractor.
type Pipeline interface {
	Source

	// AcceptWaveform appends samples. It may be called any number of
	// times before InputFinished.
	AcceptWaveform(sampleRate int, samples []float32) error

	// InputFinished flushes the pipeline; no more samples follow.
	InputFinished()

	// Auxiliary returns the auxiliary track, or nil if the pipeline has
	// none.
	Auxiliary() Source

	// SetAdaptationState installs a speaker's state. It must be called
	// before the first AcceptWaveform.
	SetAdaptationState(s *AdaptationState) error

	// AdaptationState returns the state updated with this utterance.
	AdaptationState() *AdaptationState
}

// AuxConfig controls the auxiliary speaker track.
type AuxConfig struct {
	Enabled             bool    `yaml:"enabled"`
	Period              int     `yaml:"period"`                // frames between online estimates
	MaxRememberedFrames float64 `yaml:"max_remembered_frames"` // cap on carried-over speaker statistics
	Greedy              bool    `yaml:"greedy"`                // use all available frames for every estimate
}

// Config configures the feature pipeline.
type Config struct {
	Fbank fbank.Config `yaml:"fbank"`
	Aux   AuxConfig    `yaml:"aux"`
}

// DefaultConfig returns a 40-bin filterbank with an online auxiliary track
// refreshed every 10 frames.
func DefaultConfig() Config {
	return Config{
		Fbank: fbank.DefaultConfig(),
		Aux: AuxConfig{
			Enabled:             true,
			Period:              10,
			MaxRememberedFrames: 1000,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Fbank.Validate(); err != nil {
		return err
	}
	if c.Aux.Enabled {
		if c.Aux.Period <= 0 {
			return fmt.Errorf("feature: aux period must be positive, got %d", c.Aux.Period)
		}
		if c.Aux.MaxRememberedFrames < 0 {
			return fmt.Errorf("feature: max remembered frames must not be negative")
		}
	}
	return nil
}

// Info holds the configuration and precomputed tables shared by all
// pipelines.
type Info struct {
	cfg      Config
	ext      *fbank.Extractor
	template *AdaptationState
}

// NewInfo validates cfg and precomputes the filterbank.
func NewInfo(cfg Config) (*Info, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ext, err := fbank.New(cfg.Fbank)
	if err != nil {
		return nil, err
	}
	return &Info{
		cfg:      cfg,
		ext:      ext,
		template: NewAdaptationState(cfg.Fbank.NumMels),
	}, nil
}

// Config returns the pipeline configuration.
func (i *Info) Config() Config { return i.cfg }

// SampleRate returns the sample rate pipelines accept.
func (i *Info) SampleRate() int { return i.cfg.Fbank.SampleRate }

// Dim returns the feature dimension.
func (i *Info) Dim() int { return i.ext.Dim() }

// AuxDim returns the auxiliary dimension, or 0 when the track is disabled.
func (i *Info) AuxDim() int {
	if !i.cfg.Aux.Enabled {
		return 0
	}
	return i.ext.Dim()
}

// SetTemplate replaces the initial state every speaker starts from.
func (i *Info) SetTemplate(s *AdaptationState) error {
	if s.Dim != i.Dim() {
		return fmt.Errorf("feature: template dim %d, feature dim %d", s.Dim, i.Dim())
	}
	i.template = s.Clone()
	return nil
}

// NewAdaptationState returns a fresh copy of the initial state.
func (i *Info) NewAdaptationState() *AdaptationState {
	return i.template.Clone()
}

// NewPipeline returns a pipeline for one utterance, starting from the
// initial adaptation state.
func (i *Info) NewPipeline() Pipeline {
	return newOnlinePipeline(i)
}
