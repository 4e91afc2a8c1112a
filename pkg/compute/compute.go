// Package compute runs the acoustic model over every utterance of a
// speaker-to-utterance table and writes one score matrix per utterance.
//
// For each speaker a fresh adaptation state is created from the feature
// template; each of the speaker's utterances is then streamed through the
// feature pipeline, optionally restricted to its voiced frames, scored in
// context-padded chunks and written under its utterance id. The adaptation
// state produced by one utterance is the starting state of the next.
//
// Utterances whose waveform or voicing mask is missing, and utterances too
// short for a single chunk, are logged, counted and skipped. Every other
// error ends the run.
package compute

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/amcompute/pkg/audio/wavio"
	"github.com/haivivi/amcompute/pkg/feature"
	"github.com/haivivi/amcompute/pkg/nnet"
	"github.com/haivivi/amcompute/pkg/table"
)

// Waves returns the waveform of an utterance. A missing utterance is
// reported with an error wrapping table.ErrNotFound.
type Waves interface {
	Get(ctx context.Context, utt string) (*wavio.Wave, error)
}

// Masks returns the per-frame voicing mask of an utterance. A missing
// utterance is reported with an error wrapping table.ErrNotFound.
type Masks interface {
	Get(ctx context.Context, utt string) ([]float32, error)
}

// Output receives one score matrix per utterance.
type Output interface {
	Write(ctx context.Context, utt string, rows [][]float32) error
}

// Options configures a Runner.
type Options struct {
	// ChunkLength is the length in seconds of the waveform pieces fed to
	// the feature pipeline. Zero or negative feeds the whole waveform at
	// once.
	ChunkLength float64

	// DoVAD restricts features to voiced frames. Masks must be set.
	DoVAD bool

	// Resample converts waveforms to the pipeline sample rate. Without it
	// a rate mismatch ends the run.
	Resample bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Stats summarizes a run.
type Stats struct {
	RunID        uuid.UUID     `json:"run_id" yaml:"run_id"`
	Speakers     int           `json:"speakers" yaml:"speakers"`
	Done         int           `json:"done" yaml:"done"`
	Errors       int           `json:"errors" yaml:"errors"`
	Missing      int           `json:"missing" yaml:"missing"`
	TooShort     int           `json:"too_short" yaml:"too_short"`
	InputFrames  int64         `json:"input_frames" yaml:"input_frames"`
	OutputFrames int64         `json:"output_frames" yaml:"output_frames"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Runner is the utterance loop. A Runner is used by one goroutine.
type Runner struct {
	info   *feature.Info
	scorer *nnet.Scorer
	waves  Waves
	masks  Masks
	out    Output
	opts   Options
	log    *slog.Logger
}

// NewRunner checks that the feature pipeline and the scorer's model agree
// and returns a Runner.
func NewRunner(info *feature.Info, scorer *nnet.Scorer, waves Waves, masks Masks, out Output, opts Options) (*Runner, error) {
	model := scorer.Info()
	if model.InputDim != 0 && model.InputDim != info.Dim() {
		return nil, fmt.Errorf("%w: feature dim %d, model input dim %d",
			nnet.ErrDimensionMismatch, info.Dim(), model.InputDim)
	}
	if model.AuxDim != 0 && model.AuxDim != info.AuxDim() {
		return nil, fmt.Errorf("%w: model expects %d-dim auxiliary input, pipeline provides %d",
			nnet.ErrDimensionMismatch, model.AuxDim, info.AuxDim())
	}
	if opts.DoVAD && masks == nil {
		return nil, fmt.Errorf("%w: voice activity filtering needs a mask table", nnet.ErrConfigInconsistent)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		info:   info,
		scorer: scorer,
		waves:  waves,
		masks:  masks,
		out:    out,
		opts:   opts,
		log:    log,
	}, nil
}

// Run processes every speaker. The returned Stats are valid even when
// err is not nil.
func (r *Runner) Run(ctx context.Context, speakers iter.Seq2[table.Speaker, error]) (st Stats, err error) {
	st.RunID = uuid.New()
	start := time.Now()
	log := r.log.With("run", st.RunID.String())
	defer func() { st.Elapsed = time.Since(start) }()

	for spk, err := range speakers {
		if err != nil {
			return st, err
		}
		st.Speakers++
		state := r.info.NewAdaptationState()
		for _, utt := range spk.Utts {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			res, err := r.Utterance(ctx, utt, state)
			switch {
			case errors.Is(err, nnet.ErrMissingInput):
				log.Warn("compute: skipping utterance", "spk", spk.ID, "utt", utt, "error", err)
				st.Errors++
				st.Missing++
				continue
			case errors.Is(err, nnet.ErrTooShort):
				log.Warn("compute: skipping utterance", "spk", spk.ID, "utt", utt, "error", err)
				st.Errors++
				st.TooShort++
				continue
			case err != nil:
				return st, fmt.Errorf("utterance %s: %w", utt, err)
			}
			if err := r.out.Write(ctx, utt, res.Scores); err != nil {
				return st, fmt.Errorf("utterance %s: write: %w", utt, err)
			}
			state = res.State
			st.Done++
			st.InputFrames += int64(res.InputFrames)
			st.OutputFrames += int64(len(res.Scores))
			log.Info("compute: processed utterance", "spk", spk.ID, "utt", utt,
				"frames", res.InputFrames, "rows", len(res.Scores))
		}
	}
	st.Elapsed = time.Since(start)
	log.Info("compute: done", "utterances", st.Done, "errors", st.Errors,
		"frames", st.InputFrames, "elapsed", st.Elapsed)
	return st, nil
}
