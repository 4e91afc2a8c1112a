//go:build !onnx

package onnx

import (
	"context"

	"github.com/haivivi/amcompute/pkg/nnet"
)

// Available reports whether ONNX Runtime support is compiled in.
const Available = false

// Engine is unavailable without the onnx build tag.
type Engine struct{ cfg Config }

// NewEngine validates cfg and returns ErrUnavailable.
func NewEngine(model []byte, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrUnavailable
}

func (e *Engine) Info() nnet.ModelInfo { return e.cfg.Info() }

func (e *Engine) Score(context.Context, [][]float32, [][]float32) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (e *Engine) Close() error { return nil }
