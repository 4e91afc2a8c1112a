package fbank

// Online is a streaming front end: samples are pushed with Accept and
// frames become available as soon as their window is complete.
//
// Online is not safe for concurrent use.
type Online struct {
	ext      *Extractor
	s        *scratch
	pending  []float32 // samples from the start of the next frame onwards
	skip     int       // samples to drop before the next frame starts (HopSize > WindowSize)
	frames   [][]float32
	finished bool
}

// NewOnline returns an empty streaming extractor.
func NewOnline(ext *Extractor) *Online {
	return &Online{ext: ext, s: ext.newScratch()}
}

// Accept appends samples and computes every frame whose window is now
// complete. Accept after Finish is ignored.
func (o *Online) Accept(samples []float32) {
	if o.finished {
		return
	}
	cfg := o.ext.cfg
	if o.skip > 0 {
		n := min(o.skip, len(samples))
		samples = samples[n:]
		o.skip -= n
	}
	o.pending = append(o.pending, samples...)
	start := 0
	for len(o.pending)-start >= cfg.WindowSize {
		o.frames = append(o.frames, o.ext.frame(o.pending[start:start+cfg.WindowSize], o.s))
		start += cfg.HopSize
	}
	if start > 0 {
		if start >= len(o.pending) {
			o.skip = start - len(o.pending)
			o.pending = o.pending[:0]
		} else {
			o.pending = append(o.pending[:0], o.pending[start:]...)
		}
	}
}

// Finish marks the end of input. Trailing samples that do not fill a
// window are discarded.
func (o *Online) Finish() {
	o.finished = true
	o.pending = nil
}

// Finished reports whether Finish has been called.
func (o *Online) Finished() bool { return o.finished }

// NumFramesReady returns the number of frames computed so far.
func (o *Online) NumFramesReady() int { return len(o.frames) }

// Dim returns the feature dimension.
func (o *Online) Dim() int { return o.ext.Dim() }

// Frame returns frame i. The returned slice must not be modified.
func (o *Online) Frame(i int) []float32 { return o.frames[i] }
