package feature

import (
	"errors"
	"fmt"

	"github.com/haivivi/amcompute/pkg/audio/fbank"
)

// OnlinePipeline is the filterbank pipeline with an optional auxiliary
// track. Create it with Info.NewPipeline.
type OnlinePipeline struct {
	info    *Info
	fb      *fbank.Online
	aux     *auxTrack
	started bool
}

func newOnlinePipeline(info *Info) *OnlinePipeline {
	p := &OnlinePipeline{
		info: info,
		fb:   fbank.NewOnline(info.ext),
	}
	if info.cfg.Aux.Enabled {
		p.aux = newAuxTrack(info.cfg.Aux, p.fb, info.NewAdaptationState())
	}
	return p
}

// AcceptWaveform implements Pipeline.
func (p *OnlinePipeline) AcceptWaveform(sampleRate int, samples []float32) error {
	if sampleRate != p.info.SampleRate() {
		return fmt.Errorf("%w: got %d Hz, pipeline runs at %d Hz", ErrSampleRate, sampleRate, p.info.SampleRate())
	}
	if p.fb.Finished() {
		return errors.New("feature: AcceptWaveform after InputFinished")
	}
	p.started = true
	p.fb.Accept(samples)
	if p.aux != nil {
		p.aux.update()
	}
	return nil
}

// InputFinished implements Pipeline.
func (p *OnlinePipeline) InputFinished() {
	p.fb.Finish()
	if p.aux != nil {
		p.aux.update()
	}
}

// NumFramesReady implements Source.
func (p *OnlinePipeline) NumFramesReady() int { return p.fb.NumFramesReady() }

// Dim implements Source.
func (p *OnlinePipeline) Dim() int { return p.fb.Dim() }

// Frame implements Source.
func (p *OnlinePipeline) Frame(i int) []float32 { return p.fb.Frame(i) }

// Auxiliary implements Pipeline.
func (p *OnlinePipeline) Auxiliary() Source {
	if p.aux == nil {
		return nil
	}
	return p.aux
}

// SetAdaptationState implements Pipeline.
func (p *OnlinePipeline) SetAdaptationState(s *AdaptationState) error {
	if p.started {
		return errors.New("feature: SetAdaptationState after AcceptWaveform")
	}
	if s.Dim != p.Dim() {
		return fmt.Errorf("feature: adaptation state dim %d, feature dim %d", s.Dim, p.Dim())
	}
	if p.aux != nil {
		p.aux.setPrior(s)
	}
	return nil
}

// AdaptationState implements Pipeline. Without an auxiliary track the
// state is returned empty, since nothing consumes it.
func (p *OnlinePipeline) AdaptationState() *AdaptationState {
	if p.aux == nil {
		return p.info.NewAdaptationState()
	}
	return p.aux.state()
}

// auxTrack estimates the speaker mean from the speaker prior plus the
// utterance frames consumed so far.
type auxTrack struct {
	cfg   AuxConfig
	feats Source
	prior *AdaptationState

	utt      *AdaptationState // statistics of consumed utterance frames
	periods  [][]float32      // online estimate at frame k*Period
	greedy   []float32        // cached estimate over all consumed frames
	greedyAt int              // frame count greedy was computed for
}

func newAuxTrack(cfg AuxConfig, feats Source, prior *AdaptationState) *auxTrack {
	a := &auxTrack{
		cfg:      cfg,
		feats:    feats,
		utt:      NewAdaptationState(feats.Dim()),
		greedyAt: -1,
	}
	a.setPrior(prior)
	return a
}

func (a *auxTrack) setPrior(s *AdaptationState) {
	a.prior = s.Clone()
	a.prior.Cap(a.cfg.MaxRememberedFrames)
}

// update consumes every newly ready feature frame.
func (a *auxTrack) update() {
	for n := int(a.utt.Count); n < a.feats.NumFramesReady(); n++ {
		for i, v := range a.feats.Frame(n) {
			a.utt.Sum[i] += float64(v)
		}
		a.utt.Count++
		if n%a.cfg.Period == 0 {
			a.periods = append(a.periods, a.estimate())
		}
	}
}

// estimate returns the mean over prior and consumed frames.
func (a *auxTrack) estimate() []float32 {
	total := a.prior.Clone()
	total.Count += a.utt.Count
	for i, v := range a.utt.Sum {
		total.Sum[i] += v
	}
	return total.Mean()
}

func (a *auxTrack) state() *AdaptationState {
	s := a.prior.Clone()
	s.Count += a.utt.Count
	for i, v := range a.utt.Sum {
		s.Sum[i] += v
	}
	s.Cap(a.cfg.MaxRememberedFrames)
	return s
}

// NumFramesReady implements Source; there is one auxiliary frame per
// feature frame.
func (a *auxTrack) NumFramesReady() int { return int(a.utt.Count) }

// Dim implements Source.
func (a *auxTrack) Dim() int { return a.feats.Dim() }

// Frame implements Source.
func (a *auxTrack) Frame(i int) []float32 {
	if a.cfg.Greedy {
		if n := int(a.utt.Count); a.greedyAt != n {
			a.greedy = a.estimate()
			a.greedyAt = n
		}
		return a.greedy
	}
	return a.periods[i/a.cfg.Period]
}
