// Package affine is a CPU scoring engine for small feed-forward acoustic
// models: every output frame is computed from the input frames in
// [t-LeftContext, t+RightContext] spliced together, followed by the
// auxiliary vector, and passed through a stack of affine layers.
//
// Models are stored as YAML descriptors (weights inline) or as msgpack.
package affine

import (
	"fmt"
	"path"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/haivivi/amcompute/pkg/nnet"
)

// Activation is a layer nonlinearity.
type Activation string

const (
	Linear  Activation = ""
	ReLU    Activation = "relu"
	Sigmoid Activation = "sigmoid"
	Tanh    Activation = "tanh"
	Softmax Activation = "softmax"

	// LogSoftmax outputs log posteriors, the usual acoustic model output.
	LogSoftmax Activation = "log-softmax"
)

// Layer is y = act(W x + b).
type Layer struct {
	Weights    [][]float64 `yaml:"weights" msgpack:"weights"` // output rows by input columns
	Bias       []float64   `yaml:"bias" msgpack:"bias"`
	Activation Activation  `yaml:"activation" msgpack:"activation"`
}

// Model is a spliced feed-forward network.
type Model struct {
	InputDim     int       `yaml:"input_dim" msgpack:"input_dim"`
	AuxDim       int       `yaml:"aux_dim" msgpack:"aux_dim"`
	LeftContext  int       `yaml:"left_context" msgpack:"left_context"`
	RightContext int       `yaml:"right_context" msgpack:"right_context"`
	Layers       []Layer   `yaml:"layers" msgpack:"layers"`
	LogPriors    []float32 `yaml:"log_priors,omitempty" msgpack:"log_priors,omitempty"`
}

// SplicedDim is the width of the first layer's input.
func (m *Model) SplicedDim() int {
	return (m.LeftContext+1+m.RightContext)*m.InputDim + m.AuxDim
}

// OutputDim is the number of scores per frame.
func (m *Model) OutputDim() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return len(m.Layers[len(m.Layers)-1].Bias)
}

// Info returns the model shape.
func (m *Model) Info() nnet.ModelInfo {
	return nnet.ModelInfo{
		InputDim:     m.InputDim,
		AuxDim:       m.AuxDim,
		OutputDim:    m.OutputDim(),
		LeftContext:  m.LeftContext,
		RightContext: m.RightContext,
	}
}

// Validate checks that layer shapes chain together.
func (m *Model) Validate() error {
	if m.InputDim <= 0 {
		return fmt.Errorf("affine: input dim must be positive, got %d", m.InputDim)
	}
	if m.AuxDim < 0 || m.LeftContext < 0 || m.RightContext < 0 {
		return fmt.Errorf("affine: aux dim and contexts must not be negative")
	}
	if len(m.Layers) == 0 {
		return fmt.Errorf("affine: model has no layers")
	}
	in := m.SplicedDim()
	for i, l := range m.Layers {
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Bias) {
			return fmt.Errorf("affine: layer %d: %d weight rows, %d biases", i, len(l.Weights), len(l.Bias))
		}
		for r, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("affine: layer %d row %d: %d columns, want %d", i, r, len(row), in)
			}
		}
		switch l.Activation {
		case Linear, ReLU, Sigmoid, Tanh, Softmax, LogSoftmax:
		default:
			return fmt.Errorf("affine: layer %d: unknown activation %q", i, l.Activation)
		}
		in = len(l.Bias)
	}
	if len(m.LogPriors) != 0 && len(m.LogPriors) != in {
		return fmt.Errorf("affine: %d log priors for output dim %d", len(m.LogPriors), in)
	}
	return nil
}

// Format is a model file encoding.
type Format int

const (
	FormatMsgpack Format = iota
	FormatYAML
)

// FormatOf picks the format from a file name: .yaml and .yml are YAML,
// everything else msgpack.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatMsgpack
}

// Decode parses and validates a model.
func Decode(data []byte, f Format) (*Model, error) {
	var m Model
	var err error
	if f == FormatYAML {
		err = yaml.Unmarshal(data, &m)
	} else {
		err = msgpack.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("affine: decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode serializes m.
func Encode(m *Model, f Format) ([]byte, error) {
	if f == FormatYAML {
		return yaml.Marshal(m)
	}
	return msgpack.Marshal(m)
}
