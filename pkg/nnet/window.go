package nnet

import (
	"fmt"
	"iter"
)

// ChunkConfig controls how a feature sequence is split into engine windows.
type ChunkConfig struct {
	LeftContext  int // frames of left context per window (>= 0)
	RightContext int // frames of right context per window (>= 0)
	ChunkSize    int // output frames per window (> 0)
}

// Validate reports whether the configuration can produce windows.
func (c ChunkConfig) Validate() error {
	if c.LeftContext < 0 || c.RightContext < 0 {
		return fmt.Errorf("%w: negative context (left=%d, right=%d)",
			ErrConfigInconsistent, c.LeftContext, c.RightContext)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d",
			ErrConfigInconsistent, c.ChunkSize)
	}
	return nil
}

// Width returns the number of input rows of every window.
func (c ChunkConfig) Width() int {
	return c.LeftContext + c.ChunkSize + c.RightContext
}

// NumChunks returns how many full chunks fit in totalFrames.
// The remainder totalFrames % ChunkSize is dropped.
func (c ChunkConfig) NumChunks(totalFrames int) int {
	if c.ChunkSize <= 0 || totalFrames <= 0 {
		return 0
	}
	return totalFrames / c.ChunkSize
}

// NumOutputFrames returns the number of output rows produced for
// totalFrames input frames.
func (c ChunkConfig) NumOutputFrames(totalFrames int) int {
	return c.NumChunks(totalFrames) * c.ChunkSize
}

// Window returns the window of chunk index chunk. The interval may extend
// below 0 or past the end of the sequence; see [ClampFrame].
func (c ChunkConfig) Window(chunk int) Window {
	begin := chunk*c.ChunkSize - c.LeftContext
	return Window{
		Chunk: chunk,
		Begin: begin,
		End:   begin + c.Width(),
	}
}

// Plan yields one window per full chunk of a totalFrames-long sequence, in
// chunk order. The sequence can be ranged over any number of times.
func (c ChunkConfig) Plan(totalFrames int) iter.Seq[Window] {
	n := c.NumChunks(totalFrames)
	return func(yield func(Window) bool) {
		for i := 0; i < n; i++ {
			if !yield(c.Window(i)) {
				return
			}
		}
	}
}

// Windows returns the planned windows as a slice.
func (c ChunkConfig) Windows(totalFrames int) []Window {
	ws := make([]Window, 0, c.NumChunks(totalFrames))
	for w := range c.Plan(totalFrames) {
		ws = append(ws, w)
	}
	return ws
}

// Window is a half-open interval [Begin, End) of input frame indices for
// one chunk. Begin can be negative and End can exceed the sequence length
// for chunks near the utterance boundaries.
type Window struct {
	Chunk int
	Begin int
	End   int
}

// Width returns End - Begin.
func (w Window) Width() int {
	return w.End - w.Begin
}

// Inside reports whether the window lies entirely inside a sequence of
// totalFrames frames, so no clamping is needed.
func (w Window) Inside(totalFrames int) bool {
	return w.Begin >= 0 && w.End <= totalFrames
}

// Indices returns the clamped source frame index of every window row.
func (w Window) Indices(totalFrames int) []int {
	idx := make([]int, w.Width())
	for r := w.Begin; r < w.End; r++ {
		idx[r-w.Begin] = ClampFrame(r, totalFrames)
	}
	return idx
}

// Gather copies the rows of feats covered by the window into a new matrix.
// Rows outside the sequence repeat the nearest boundary frame.
// feats must not be empty.
func (w Window) Gather(feats [][]float32) [][]float32 {
	total := len(feats)
	out := make([][]float32, w.Width())
	if total == 0 {
		return out
	}
	dim := len(feats[0])
	buf := make([]float32, w.Width()*dim)
	for r := w.Begin; r < w.End; r++ {
		i := r - w.Begin
		row := buf[i*dim : (i+1)*dim : (i+1)*dim]
		copy(row, feats[ClampFrame(r, total)])
		out[i] = row
	}
	return out
}

// ClampFrame maps a possibly out-of-range frame index into [0, totalFrames).
// Negative indices resolve to 0 and indices >= totalFrames resolve to the
// last frame. totalFrames must be positive.
func ClampFrame(r, totalFrames int) int {
	if r < 0 {
		return 0
	}
	if r >= totalFrames {
		return totalFrames - 1
	}
	return r
}
