//go:build onnx

package onnx

import (
	"context"
	"fmt"
	"sync"

	"github.com/haivivi/amcompute/pkg/nnet"
)

// Available reports whether ONNX Runtime support is compiled in.
const Available = true

// Engine runs an ONNX acoustic model. Calls are serialized.
type Engine struct {
	cfg Config

	mu   sync.Mutex
	sess *session
}

// NewEngine loads model, an ONNX file's contents.
func NewEngine(model []byte, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := newSession(model)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, sess: s}, nil
}

// Info implements nnet.Engine.
func (e *Engine) Info() nnet.ModelInfo { return e.cfg.Info() }

// Score implements nnet.Engine.
func (e *Engine) Score(ctx context.Context, input, aux [][]float32) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := flatten(input, e.cfg.InputDim)
	if err != nil {
		return nil, err
	}
	w := int64(len(input))
	inputs := []tensor{{name: e.cfg.InputName, shape: []int64{1, w, int64(e.cfg.InputDim)}, data: data}}
	if e.cfg.AuxDim > 0 {
		if len(aux) != len(input) {
			return nil, fmt.Errorf("onnx: %d aux rows for %d input rows", len(aux), len(input))
		}
		a, err := flatten(aux, e.cfg.AuxDim)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, tensor{name: e.cfg.AuxName, shape: []int64{1, w, int64(e.cfg.AuxDim)}, data: a})
	}

	e.mu.Lock()
	out, err := e.sess.run(inputs, []string{e.cfg.OutputName})
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return unflatten(out[0].shape, out[0].data)
}

// Close releases the session.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.close()
	return nil
}

var _ nnet.Engine = (*Engine)(nil)
