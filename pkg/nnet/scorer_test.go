package nnet_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/haivivi/amcompute/pkg/nnet"
)

// echoEngine returns, for every input row, [frame value, aux value]. When
// chunkRowsOnly is set it drops the context rows itself.
type echoEngine struct {
	info          nnet.ModelInfo
	chunkRowsOnly bool
	fail          error
	calls         int
}

func (e *echoEngine) Info() nnet.ModelInfo { return e.info }

func (e *echoEngine) Score(_ context.Context, input, aux [][]float32) ([][]float32, error) {
	e.calls++
	if e.fail != nil {
		return nil, e.fail
	}
	rows := input
	if e.chunkRowsOnly {
		rows = input[e.info.LeftContext : len(input)-e.info.RightContext]
	}
	out := make([][]float32, len(rows))
	for i, r := range rows {
		var a float32
		if aux != nil {
			a = aux[i][0]
		}
		out[i] = []float32{r[0], a}
	}
	return out, nil
}

func newEcho(left, right int) *echoEngine {
	return &echoEngine{info: nnet.ModelInfo{InputDim: 1, OutputDim: 2, LeftContext: left, RightContext: right}}
}

func TestScorerDensePlacement(t *testing.T) {
	for _, chunkRowsOnly := range []bool{false, true} {
		eng := newEcho(3, 2)
		eng.chunkRowsOnly = chunkRowsOnly
		s, err := nnet.NewScorer(eng, nnet.ScorerOptions{
			Chunk:         eng.info.ChunkConfig(4),
			AcousticScale: 1,
		})
		if err != nil {
			t.Fatal(err)
		}

		feats := frames(18, 1) // 4 chunks, 2 frames dropped
		out, err := s.Run(context.Background(), feats, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(out) != 16 {
			t.Fatalf("got %d rows, want 16", len(out))
		}
		for i, row := range out {
			if row[0] != float32(i) {
				t.Fatalf("chunkRowsOnly=%v: row %d holds frame %v", chunkRowsOnly, i, row[0])
			}
		}
		if eng.calls != 4 {
			t.Fatalf("engine called %d times, want 4", eng.calls)
		}
	}
}

func TestScorerRawOutputRoundTrip(t *testing.T) {
	eng := newEcho(2, 2)
	s, err := nnet.NewScorer(eng, nnet.ScorerOptions{
		Chunk:         eng.info.ChunkConfig(5),
		LogPriors:     []float32{0, 0},
		AcousticScale: 1.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Run(context.Background(), frames(10, 1), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range out {
		if row[0] != float32(i) || row[1] != 0 {
			t.Fatalf("row %d = %v, want [%d 0]", i, row, i)
		}
	}
}

func TestScorerPriorAndScale(t *testing.T) {
	eng := newEcho(0, 0)
	s, err := nnet.NewScorer(eng, nnet.ScorerOptions{
		Chunk:         eng.info.ChunkConfig(2),
		LogPriors:     []float32{1, -1},
		AcousticScale: 0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Run(context.Background(), frames(2, 1), []float32{7})
	if err != nil {
		t.Fatal(err)
	}
	// Row 1: ([1, 0] - [1, -1]) * 0.5 = [0, 0.5]. Aux is ignored because
	// the model declares no aux input.
	if out[1][0] != 0 || out[1][1] != 0.5 {
		t.Fatalf("row 1 = %v, want [0 0.5]", out[1])
	}
}

func TestScorerApplyLog(t *testing.T) {
	eng := newEcho(0, 0)
	s, err := nnet.NewScorer(eng, nnet.ScorerOptions{
		Chunk:         eng.info.ChunkConfig(3),
		AcousticScale: 1,
		ApplyLog:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Run(context.Background(), frames(3, 1), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := float64(out[2][0]); math.Abs(got-math.Log(2)) > 1e-6 {
		t.Fatalf("log(2) = %v", got)
	}
	if got := float64(out[0][0]); math.Abs(got-math.Log(1e-20)) > 1e-3 {
		t.Fatalf("log(0) = %v, want floored value", got)
	}
}

func TestScorerAuxBroadcast(t *testing.T) {
	eng := newEcho(1, 1)
	eng.info.AuxDim = 1
	s, err := nnet.NewScorer(eng, nnet.ScorerOptions{Chunk: eng.info.ChunkConfig(2), AcousticScale: 1})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Run(context.Background(), frames(4, 1), []float32{9})
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range out {
		if row[1] != 9 {
			t.Fatalf("row %d aux = %v, want 9", i, row[1])
		}
	}

	_, err = s.Run(context.Background(), frames(4, 1), nil)
	if !errors.Is(err, nnet.ErrDimensionMismatch) {
		t.Fatalf("missing aux: err = %v, want ErrDimensionMismatch", err)
	}
}

func TestScorerErrors(t *testing.T) {
	ctx := context.Background()

	eng := newEcho(0, 0)
	s, _ := nnet.NewScorer(eng, nnet.ScorerOptions{Chunk: eng.info.ChunkConfig(20), AcousticScale: 1})
	if _, err := s.Run(ctx, frames(19, 1), nil); !errors.Is(err, nnet.ErrTooShort) {
		t.Fatalf("short input: err = %v, want ErrTooShort", err)
	}
	if _, err := s.Run(ctx, frames(20, 3), nil); !errors.Is(err, nnet.ErrDimensionMismatch) {
		t.Fatalf("wrong input dim: err = %v, want ErrDimensionMismatch", err)
	}

	boom := errors.New("boom")
	eng.fail = boom
	_, err := s.Run(ctx, frames(20, 1), nil)
	if !errors.Is(err, nnet.ErrEngineFailure) || !errors.Is(err, boom) {
		t.Fatalf("engine error: err = %v, want ErrEngineFailure wrapping boom", err)
	}

	if _, err := nnet.NewScorer(eng, nnet.ScorerOptions{Chunk: eng.info.ChunkConfig(2), LogPriors: []float32{1}}); !errors.Is(err, nnet.ErrDimensionMismatch) {
		t.Fatalf("prior dim: err = %v, want ErrDimensionMismatch", err)
	}
	if _, err := nnet.NewScorer(eng, nnet.ScorerOptions{}); !errors.Is(err, nnet.ErrConfigInconsistent) {
		t.Fatalf("zero chunk: err = %v, want ErrConfigInconsistent", err)
	}
}

func TestScorerWiderContext(t *testing.T) {
	// The engine needs 1+1 frames of context but the window carries 3+2.
	for _, chunkRowsOnly := range []bool{false, true} {
		eng := newEcho(1, 1)
		eng.chunkRowsOnly = chunkRowsOnly
		s, err := nnet.NewScorer(eng, nnet.ScorerOptions{
			Chunk:         nnet.ChunkConfig{LeftContext: 3, RightContext: 2, ChunkSize: 4},
			AcousticScale: 1,
		})
		if err != nil {
			t.Fatal(err)
		}
		out, err := s.Run(context.Background(), frames(10, 1), nil)
		if err != nil {
			t.Fatalf("chunkRowsOnly=%v: %v", chunkRowsOnly, err)
		}
		if len(out) != 8 {
			t.Fatalf("chunkRowsOnly=%v: %d rows, want 8", chunkRowsOnly, len(out))
		}
		for i, row := range out {
			if row[0] != float32(i) {
				t.Errorf("chunkRowsOnly=%v: row %d holds frame %v", chunkRowsOnly, i, row[0])
			}
		}
	}

	eng := newEcho(2, 2)
	_, err := nnet.NewScorer(eng, nnet.ScorerOptions{
		Chunk:         nnet.ChunkConfig{LeftContext: 1, RightContext: 2, ChunkSize: 4},
		AcousticScale: 1,
	})
	if !errors.Is(err, nnet.ErrConfigInconsistent) {
		t.Fatalf("narrow context: err = %v, want ErrConfigInconsistent", err)
	}
}

func TestScorerCanceled(t *testing.T) {
	eng := newEcho(0, 0)
	s, _ := nnet.NewScorer(eng, nnet.ScorerOptions{Chunk: eng.info.ChunkConfig(1), AcousticScale: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Run(ctx, frames(3, 1), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if eng.calls != 0 {
		t.Fatalf("engine called %d times after cancel", eng.calls)
	}
}
