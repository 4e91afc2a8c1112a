package affine

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/haivivi/amcompute/pkg/nnet"
)

// Engine scores windows with a Model. It returns one row per chunk frame:
// an input window of n rows yields n-LeftContext-RightContext rows.
//
// Engine is safe for concurrent use.
type Engine struct {
	model  *Model
	layers []denseLayer
}

type denseLayer struct {
	w   *mat.Dense // out x in
	b   []float64
	act Activation
}

// NewEngine validates m and prepares its weight matrices.
func NewEngine(m *Model) (*Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{model: m}
	for _, l := range m.Layers {
		out, in := len(l.Weights), len(l.Weights[0])
		w := mat.NewDense(out, in, nil)
		for r, row := range l.Weights {
			w.SetRow(r, row)
		}
		e.layers = append(e.layers, denseLayer{w: w, b: l.Bias, act: l.Activation})
	}
	return e, nil
}

// Model returns the engine's model.
func (e *Engine) Model() *Model { return e.model }

// Info implements nnet.Engine.
func (e *Engine) Info() nnet.ModelInfo { return e.model.Info() }

// Score implements nnet.Engine.
func (e *Engine) Score(ctx context.Context, input, aux [][]float32) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := e.model
	n := len(input) - m.LeftContext - m.RightContext
	if n <= 0 {
		return nil, fmt.Errorf("affine: window of %d rows is narrower than the model context %d+%d",
			len(input), m.LeftContext, m.RightContext)
	}
	if m.AuxDim > 0 && len(aux) != len(input) {
		return nil, fmt.Errorf("affine: %d aux rows for %d input rows", len(aux), len(input))
	}

	x := mat.NewDense(n, m.SplicedDim(), nil)
	row := make([]float64, m.SplicedDim())
	for t := range n {
		col := 0
		for _, in := range input[t : t+m.LeftContext+1+m.RightContext] {
			if len(in) != m.InputDim {
				return nil, fmt.Errorf("affine: input row of dim %d, want %d", len(in), m.InputDim)
			}
			for _, v := range in {
				row[col] = float64(v)
				col++
			}
		}
		if m.AuxDim > 0 {
			a := aux[t+m.LeftContext]
			if len(a) != m.AuxDim {
				return nil, fmt.Errorf("affine: aux row of dim %d, want %d", len(a), m.AuxDim)
			}
			for _, v := range a {
				row[col] = float64(v)
				col++
			}
		}
		x.SetRow(t, row)
	}

	for _, l := range e.layers {
		var y mat.Dense
		y.Mul(x, l.w.T())
		for t := range n {
			r := y.RawRowView(t)
			floats.Add(r, l.b)
			activate(r, l.act)
		}
		x = &y
	}

	out := make([][]float32, n)
	for t := range out {
		r := x.RawRowView(t)
		o := make([]float32, len(r))
		for i, v := range r {
			o[i] = float32(v)
		}
		out[t] = o
	}
	return out, nil
}

func activate(r []float64, act Activation) {
	switch act {
	case ReLU:
		for i, v := range r {
			r[i] = max(v, 0)
		}
	case Sigmoid:
		for i, v := range r {
			r[i] = 1 / (1 + math.Exp(-v))
		}
	case Tanh:
		for i, v := range r {
			r[i] = math.Tanh(v)
		}
	case Softmax, LogSoftmax:
		lse := floats.LogSumExp(r)
		floats.AddConst(-lse, r)
		if act == Softmax {
			for i, v := range r {
				r[i] = math.Exp(v)
			}
		}
	}
}

var _ nnet.Engine = (*Engine)(nil)
