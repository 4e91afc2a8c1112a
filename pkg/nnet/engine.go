package nnet

import "context"

// ModelInfo describes the shape of a scoring model.
type ModelInfo struct {
	InputDim     int // feature dimension of each input row
	AuxDim       int // auxiliary (ivector) dimension; 0 if the model takes none
	OutputDim    int // number of output scores per frame
	LeftContext  int // input frames needed before the first output frame
	RightContext int // input frames needed after the last output frame
}

// ChunkConfig returns the window layout the model needs for chunkSize
// output frames per call.
func (m ModelInfo) ChunkConfig(chunkSize int) ChunkConfig {
	return ChunkConfig{
		LeftContext:  m.LeftContext,
		RightContext: m.RightContext,
		ChunkSize:    chunkSize,
	}
}

// Engine scores one window of input frames.
//
// input has one row per window frame (left context, chunk, right context).
// aux has the same number of rows as input, or is nil when the model has no
// auxiliary input. Score returns either one row per input row or one row
// per chunk frame; [Scorer] keeps only the rows of the chunk's own frames.
//
// Implementations may use hardware parallelism internally but Score must
// block until the output is ready.
type Engine interface {
	Info() ModelInfo
	Score(ctx context.Context, input, aux [][]float32) ([][]float32, error)
}
