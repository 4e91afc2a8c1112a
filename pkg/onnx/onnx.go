// Package onnx scores acoustic model windows with ONNX Runtime.
//
// The runtime is linked through cgo and only built with the "onnx" build
// tag; without it [NewEngine] returns [ErrUnavailable] and the pure Go
// engine in package affine is the only scorer.
//
// The model takes one window per call:
//
//	input  [1, W, InputDim]   window rows (left context, chunk, right context)
//	ivector [1, W, AuxDim]    auxiliary rows, only when AuxDim > 0
//	output [1, N, OutputDim]  N = W or N = chunk size
//
// Tensor names and the model shape come from [Config].
package onnx

import (
	"errors"
	"fmt"

	"github.com/haivivi/amcompute/pkg/nnet"
)

// ErrUnavailable is returned by NewEngine when the binary was built
// without ONNX Runtime.
var ErrUnavailable = errors.New("onnx: built without onnx support (use -tags onnx)")

// Config describes an ONNX acoustic model.
type Config struct {
	InputName  string `yaml:"input_name"`
	AuxName    string `yaml:"aux_name"`
	OutputName string `yaml:"output_name"`

	InputDim     int `yaml:"input_dim"`
	AuxDim       int `yaml:"aux_dim"`
	OutputDim    int `yaml:"output_dim"`
	LeftContext  int `yaml:"left_context"`
	RightContext int `yaml:"right_context"`
}

// DefaultConfig returns the conventional tensor names.
func DefaultConfig() Config {
	return Config{InputName: "input", AuxName: "ivector", OutputName: "output"}
}

// Info returns the model shape.
func (c Config) Info() nnet.ModelInfo {
	return nnet.ModelInfo{
		InputDim:     c.InputDim,
		AuxDim:       c.AuxDim,
		OutputDim:    c.OutputDim,
		LeftContext:  c.LeftContext,
		RightContext: c.RightContext,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.InputName == "" || c.OutputName == "":
		return fmt.Errorf("onnx: input and output tensor names are required")
	case c.AuxDim > 0 && c.AuxName == "":
		return fmt.Errorf("onnx: aux tensor name is required when aux dim is %d", c.AuxDim)
	case c.InputDim <= 0:
		return fmt.Errorf("onnx: input dim must be positive, got %d", c.InputDim)
	case c.AuxDim < 0 || c.OutputDim < 0 || c.LeftContext < 0 || c.RightContext < 0:
		return fmt.Errorf("onnx: dims and contexts must not be negative")
	}
	return nil
}

// flatten packs rows into a single row-major buffer.
func flatten(rows [][]float32, dim int) ([]float32, error) {
	buf := make([]float32, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("onnx: row %d has dim %d, want %d", i, len(r), dim)
		}
		buf = append(buf, r...)
	}
	return buf, nil
}

// unflatten splits a [1, N, D] or [N, D] output into rows.
func unflatten(shape []int64, data []float32) ([][]float32, error) {
	if len(shape) == 3 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("onnx: unexpected output shape %v", shape)
	}
	n, d := int(shape[0]), int(shape[1])
	if n*d != len(data) {
		return nil, fmt.Errorf("onnx: output shape %v holds %d values", shape, len(data))
	}
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = data[i*d : (i+1)*d : (i+1)*d]
	}
	return rows, nil
}
