package nnet

// AuxSource is a read-only track of auxiliary (ivector) frames.
// feature.Source satisfies it.
type AuxSource interface {
	NumFramesReady() int
	Dim() int
	Frame(i int) []float32
}

// SelectAuxiliary returns the auxiliary frame to use for input rows up to
// targetRow: the most recent frame at or before targetRow. When the source
// has no frames yet, a zero vector of the source dimension is returned.
//
// The result is always a fresh slice.
func SelectAuxiliary(src AuxSource, targetRow int) []float32 {
	v := make([]float32, src.Dim())
	ready := src.NumFramesReady()
	if ready == 0 {
		return v
	}
	i := min(targetRow, ready-1)
	if i < 0 {
		i = 0
	}
	copy(v, src.Frame(i))
	return v
}

// Broadcast returns a rows-long matrix whose every row is v. Rows share
// v's backing array and must not be modified.
func Broadcast(v []float32, rows int) [][]float32 {
	out := make([][]float32, rows)
	for i := range out {
		out[i] = v
	}
	return out
}
