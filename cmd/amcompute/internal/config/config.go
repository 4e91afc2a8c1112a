// Package config holds the amcompute configuration file.
//
// The file is YAML; every section is optional and missing fields keep
// their defaults:
//
//	feature:
//	  fbank:
//	    sample_rate: 16000
//	    num_mels: 40
//	  aux:
//	    enabled: true
//	    period: 10
//	decodable:
//	  frames_per_chunk: 20
//	  acoustic_scale: 0.1
//	compute:
//	  chunk_length: 0.05
//	  online: true
//	  adaptation_template: s3://models/am/template.state
//	s3:
//	  region: us-east-1
//	  endpoint: http://localhost:9000
//	onnx:
//	  input_dim: 40
//	  output_dim: 3000
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/amcompute/pkg/feature"
	"github.com/haivivi/amcompute/pkg/onnx"
	"github.com/haivivi/amcompute/pkg/storage"
)

// File is the whole configuration.
type File struct {
	Feature   feature.Config   `yaml:"feature"`
	Decodable Decodable        `yaml:"decodable"`
	Compute   Compute          `yaml:"compute"`
	S3        storage.S3Config `yaml:"s3"`
	ONNX      onnx.Config      `yaml:"onnx"`
}

// Decodable configures how model output is produced.
type Decodable struct {
	FramesPerChunk int     `yaml:"frames_per_chunk"`
	AcousticScale  float32 `yaml:"acoustic_scale"`
	LeftContext    int     `yaml:"left_context"`  // -1 uses the model's
	RightContext   int     `yaml:"right_context"` // -1 uses the model's
	ApplyLog       bool    `yaml:"apply_log"`
	PadInput       bool    `yaml:"pad_input"`
}

// Compute configures the utterance loop.
type Compute struct {
	Online      bool    `yaml:"online"`
	ChunkLength float64 `yaml:"chunk_length"` // seconds; <= 0 feeds whole waveforms
	DoVAD       bool    `yaml:"do_vad"`
	Resample    bool    `yaml:"resample"`

	// AdaptationTemplate names a msgpack adaptation state every speaker
	// starts from. Empty starts from zero statistics.
	AdaptationTemplate string `yaml:"adaptation_template"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Feature: feature.DefaultConfig(),
		Decodable: Decodable{
			FramesPerChunk: 20,
			AcousticScale:  0.1,
			LeftContext:    -1,
			RightContext:   -1,
			PadInput:       true,
		},
		Compute: Compute{
			Online:      true,
			ChunkLength: 0.05,
		},
		ONNX: onnx.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*File, error) {
	f := Default()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := f.Decode(data); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return f, nil
}

// Decode merges YAML data into f. Unknown keys are rejected.
func (f *File) Decode(data []byte) error {
	return yaml.UnmarshalWithOptions(data, f, yaml.Strict())
}

// DecodeFeature merges a feature-only YAML document into f.Feature.
func (f *File) DecodeFeature(data []byte) error {
	return yaml.UnmarshalWithOptions(data, &f.Feature, yaml.Strict())
}

// Validate checks every section.
func (f *File) Validate() error {
	if err := f.Feature.Validate(); err != nil {
		return err
	}
	if f.Decodable.FramesPerChunk <= 0 {
		return fmt.Errorf("config: frames_per_chunk must be positive, got %d", f.Decodable.FramesPerChunk)
	}
	return nil
}
