package compute

import (
	"context"
	"errors"
	"fmt"

	"github.com/haivivi/amcompute/pkg/audio/resampler"
	"github.com/haivivi/amcompute/pkg/feature"
	"github.com/haivivi/amcompute/pkg/nnet"
	"github.com/haivivi/amcompute/pkg/table"
)

// Result is the outcome of one utterance.
type Result struct {
	Scores      [][]float32
	State       *feature.AdaptationState // speaker state after this utterance
	TotalFrames int                      // feature frames before voice activity filtering
	InputFrames int                      // frames scored
}

// Utterance computes the scores of one utterance starting from the
// speaker state. state is not modified.
func (r *Runner) Utterance(ctx context.Context, utt string, state *feature.AdaptationState) (*Result, error) {
	wave, err := r.waves.Get(ctx, utt)
	if errors.Is(err, table.ErrNotFound) {
		return nil, fmt.Errorf("%w: no audio for utterance %s", nnet.ErrMissingInput, utt)
	}
	if err != nil {
		return nil, err
	}

	rate := wave.SampleRate
	samples := wave.Mono()
	if r.opts.Resample && rate != r.info.SampleRate() {
		if samples, err = resampler.Resample(samples, rate, r.info.SampleRate()); err != nil {
			return nil, err
		}
		rate = r.info.SampleRate()
	}

	p := r.info.NewPipeline()
	if err := p.SetAdaptationState(state); err != nil {
		return nil, err
	}
	if err := r.feed(p, rate, samples); err != nil {
		return nil, err
	}

	total := p.NumFramesReady()
	feats := make([][]float32, total)
	for i := range feats {
		feats[i] = p.Frame(i)
	}

	if r.opts.DoVAD {
		mask, err := r.masks.Get(ctx, utt)
		if errors.Is(err, table.ErrNotFound) {
			return nil, fmt.Errorf("%w: no voicing mask for utterance %s", nnet.ErrMissingInput, utt)
		}
		if err != nil {
			return nil, err
		}
		r.log.Debug("compute: voicing mask", "utt", utt, "mask", len(mask),
			"flagged", nnet.CountVoiced(mask), "frames", total)
		if feats, err = nnet.SelectVoiced(feats, mask); err != nil {
			return nil, err
		}
		r.log.Debug("compute: voiced frames", "utt", utt, "frames", total, "voiced", len(feats))
	}

	var aux []float32
	if src := p.Auxiliary(); src != nil && r.scorer.Info().AuxDim > 0 {
		aux = nnet.SelectAuxiliary(src, total-1)
	}

	scores, err := r.scorer.Run(ctx, feats, aux)
	if err != nil {
		return nil, err
	}
	return &Result{
		Scores:      scores,
		State:       p.AdaptationState(),
		TotalFrames: total,
		InputFrames: len(feats),
	}, nil
}

// feed streams samples into p in ChunkLength pieces and finishes input.
func (r *Runner) feed(p feature.Pipeline, rate int, samples []float32) error {
	n := len(samples)
	if r.opts.ChunkLength > 0 {
		n = max(int(float64(rate)*r.opts.ChunkLength), 1)
	}
	for off := 0; off < len(samples); off += n {
		if err := p.AcceptWaveform(rate, samples[off:min(off+n, len(samples))]); err != nil {
			return err
		}
	}
	p.InputFinished()
	return nil
}
