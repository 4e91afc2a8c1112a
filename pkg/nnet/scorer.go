package nnet

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// logFloor is the smallest value passed to log when ApplyLog is set.
const logFloor = 1e-20

// ScorerOptions configures a [Scorer].
type ScorerOptions struct {
	// Chunk is the window layout. Use ModelInfo.ChunkConfig for the
	// model's own context.
	Chunk ChunkConfig

	// LogPriors is subtracted from every output row when non-empty.
	// Its length must equal the model output dimension.
	LogPriors []float32

	// AcousticScale multiplies every output value after prior subtraction.
	AcousticScale float32

	// ApplyLog takes the natural log of every output value (floored at
	// 1e-20) just before it is stored.
	ApplyLog bool

	// Logger receives per-chunk debug records. Defaults to slog.Default().
	Logger *slog.Logger
}

// Scorer runs an Engine chunk by chunk over a whole utterance.
type Scorer struct {
	engine Engine
	info   ModelInfo
	opts   ScorerOptions
	log    *slog.Logger
}

// NewScorer validates opts against the engine's model and returns a Scorer.
func NewScorer(engine Engine, opts ScorerOptions) (*Scorer, error) {
	if err := opts.Chunk.Validate(); err != nil {
		return nil, err
	}
	info := engine.Info()
	if opts.Chunk.LeftContext < info.LeftContext || opts.Chunk.RightContext < info.RightContext {
		return nil, fmt.Errorf("%w: window context %d+%d is narrower than the model context %d+%d",
			ErrConfigInconsistent, opts.Chunk.LeftContext, opts.Chunk.RightContext,
			info.LeftContext, info.RightContext)
	}
	if len(opts.LogPriors) != 0 && info.OutputDim != 0 && len(opts.LogPriors) != info.OutputDim {
		return nil, fmt.Errorf("%w: %d log priors for output dim %d",
			ErrDimensionMismatch, len(opts.LogPriors), info.OutputDim)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{engine: engine, info: info, opts: opts, log: log}, nil
}

// Info returns the engine's model description.
func (s *Scorer) Info() ModelInfo {
	return s.info
}

// Chunk returns the window layout used by the scorer.
func (s *Scorer) Chunk() ChunkConfig {
	return s.opts.Chunk
}

// Run scores feats and returns one output row per frame of every full
// chunk. aux is the auxiliary vector broadcast over every window; pass nil
// when no auxiliary track is available.
//
// Chunk c is written to output rows [c*ChunkSize, (c+1)*ChunkSize).
func (s *Scorer) Run(ctx context.Context, feats [][]float32, aux []float32) ([][]float32, error) {
	chunk := s.opts.Chunk
	numChunks := chunk.NumChunks(len(feats))
	if numChunks == 0 {
		return nil, fmt.Errorf("%w: %d frames, chunk size %d", ErrTooShort, len(feats), chunk.ChunkSize)
	}
	if dim := len(feats[0]); s.info.InputDim != 0 && dim != s.info.InputDim {
		return nil, fmt.Errorf("%w: feature dim %d, model input dim %d",
			ErrDimensionMismatch, dim, s.info.InputDim)
	}
	if s.info.AuxDim != 0 {
		if aux == nil {
			return nil, fmt.Errorf("%w: model expects auxiliary input but none is available",
				ErrDimensionMismatch)
		}
		if len(aux) != s.info.AuxDim {
			return nil, fmt.Errorf("%w: auxiliary dim %d, model aux dim %d",
				ErrDimensionMismatch, len(aux), s.info.AuxDim)
		}
	} else {
		aux = nil
	}

	outDim := s.info.OutputDim
	var out [][]float32
	var buf []float32

	for w := range chunk.Plan(len(feats)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		input := w.Gather(feats)
		var auxRows [][]float32
		if aux != nil {
			auxRows = Broadcast(aux, w.Width())
		}

		res, err := s.engine.Score(ctx, input, auxRows)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrEngineFailure, w.Chunk, err)
		}

		// The engine returns one row per input row, one per chunk frame, or
		// one per input row that has its full model context.
		var first int
		switch len(res) {
		case w.Width():
			first = chunk.LeftContext
		case chunk.ChunkSize:
			first = 0
		case w.Width() - s.info.LeftContext - s.info.RightContext:
			first = chunk.LeftContext - s.info.LeftContext
		default:
			return nil, fmt.Errorf("%w: chunk %d: engine returned %d rows, want %d, %d or %d",
				ErrDimensionMismatch, w.Chunk, len(res), w.Width(), chunk.ChunkSize,
				w.Width()-s.info.LeftContext-s.info.RightContext)
		}

		if out == nil {
			if outDim == 0 {
				outDim = len(res[first])
			}
			if len(s.opts.LogPriors) != 0 && len(s.opts.LogPriors) != outDim {
				return nil, fmt.Errorf("%w: %d log priors for output dim %d",
					ErrDimensionMismatch, len(s.opts.LogPriors), outDim)
			}
			rows := numChunks * chunk.ChunkSize
			out = make([][]float32, rows)
			buf = make([]float32, rows*outDim)
		}

		for i := 0; i < chunk.ChunkSize; i++ {
			src := res[first+i]
			if len(src) != outDim {
				return nil, fmt.Errorf("%w: chunk %d row %d: engine output dim %d, want %d",
					ErrDimensionMismatch, w.Chunk, i, len(src), outDim)
			}
			r := w.Chunk*chunk.ChunkSize + i
			dst := buf[r*outDim : (r+1)*outDim : (r+1)*outDim]
			s.postprocess(dst, src)
			out[r] = dst
		}

		s.log.Debug("nnet: scored chunk",
			"chunk", w.Chunk, "begin", w.Begin, "end", w.End, "clamped", !w.Inside(len(feats)))
	}
	return out, nil
}

// postprocess writes (src - prior) * scale into dst, then the log if
// requested.
func (s *Scorer) postprocess(dst, src []float32) {
	priors := s.opts.LogPriors
	scale := s.opts.AcousticScale
	for j, v := range src {
		if len(priors) != 0 {
			v -= priors[j]
		}
		v *= scale
		if s.opts.ApplyLog {
			v = float32(math.Log(math.Max(float64(v), logFloor)))
		}
		dst[j] = v
	}
}
