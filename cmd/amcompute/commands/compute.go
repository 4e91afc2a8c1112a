package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/amcompute/cmd/amcompute/internal/config"
	"github.com/haivivi/amcompute/pkg/cli"
	"github.com/haivivi/amcompute/pkg/compute"
	"github.com/haivivi/amcompute/pkg/feature"
	"github.com/haivivi/amcompute/pkg/nnet"
	"github.com/haivivi/amcompute/pkg/nnet/affine"
	"github.com/haivivi/amcompute/pkg/onnx"
	"github.com/haivivi/amcompute/pkg/storage"
	"github.com/haivivi/amcompute/pkg/table"
)

type computeFlags struct {
	cfg           *config.File // flag values; copied over the file config when set
	featureConfig string
	summary       string
}

func newComputeCmd(a *app) *cobra.Command {
	fl := &computeFlags{cfg: config.Default()}
	cmd := &cobra.Command{
		Use:   "compute [flags] <model> <spk2utt-rspecifier> <wav-rspecifier> <vad-rspecifier> <scores-wspecifier>",
		Short: "Score utterances with an acoustic model",
		Long: `Compute acoustic model scores for every utterance of every speaker.

The model is an ONNX file (*.onnx, needs a binary built with -tags onnx)
or a CPU reference model (*.yaml, *.yml or msgpack). Speaker adaptation
state is carried from one utterance of a speaker to the next.

Exit status is 0 if at least one utterance was scored, 1 if none was,
and 255 on error.`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd, a, fl, args)
		},
	}

	f := cmd.Flags()
	d := &fl.cfg.Decodable
	c := &fl.cfg.Compute
	f.BoolVar(&d.ApplyLog, "apply-log", d.ApplyLog, "take the log of the output scores")
	f.BoolVar(&d.PadInput, "pad-input", d.PadInput, "replicate edge frames at utterance boundaries (always on)")
	f.IntVar(&d.FramesPerChunk, "frames-per-chunk", d.FramesPerChunk, "output frames per model call")
	f.Float32Var(&d.AcousticScale, "acoustic-scale", d.AcousticScale, "scale applied to the scores")
	f.IntVar(&d.LeftContext, "left-context", d.LeftContext, "left context frames; -1 uses the model's")
	f.IntVar(&d.RightContext, "right-context", d.RightContext, "right context frames; -1 uses the model's")
	f.BoolVar(&c.Online, "online", c.Online, "estimate the auxiliary vector online; false uses whole utterances")
	f.Float64Var(&c.ChunkLength, "chunk-length", c.ChunkLength, "seconds of audio fed per step; <= 0 feeds whole waveforms")
	f.BoolVar(&c.DoVAD, "do-vad", c.DoVAD, "score only voiced frames")
	f.BoolVar(&c.Resample, "resample", c.Resample, "resample waveforms to the feature sample rate")
	f.StringVar(&c.AdaptationTemplate, "adaptation-template", "", "msgpack adaptation state every speaker starts from")
	f.StringVar(&fl.featureConfig, "feature-config", "", "YAML feature configuration")
	f.StringVar(&fl.summary, "summary", "", "print run statistics to stderr: yaml, json or table")
	return cmd
}

// merge copies explicitly set flags over cfg.
func (fl *computeFlags) merge(cmd *cobra.Command, cfg *config.File) {
	d, c := &fl.cfg.Decodable, &fl.cfg.Compute
	set := map[string]func(){
		"apply-log":           func() { cfg.Decodable.ApplyLog = d.ApplyLog },
		"pad-input":           func() { cfg.Decodable.PadInput = d.PadInput },
		"frames-per-chunk":    func() { cfg.Decodable.FramesPerChunk = d.FramesPerChunk },
		"acoustic-scale":      func() { cfg.Decodable.AcousticScale = d.AcousticScale },
		"left-context":        func() { cfg.Decodable.LeftContext = d.LeftContext },
		"right-context":       func() { cfg.Decodable.RightContext = d.RightContext },
		"online":              func() { cfg.Compute.Online = c.Online },
		"chunk-length":        func() { cfg.Compute.ChunkLength = c.ChunkLength },
		"do-vad":              func() { cfg.Compute.DoVAD = c.DoVAD },
		"resample":            func() { cfg.Compute.Resample = c.Resample },
		"adaptation-template": func() { cfg.Compute.AdaptationTemplate = c.AdaptationTemplate },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}

func runCompute(cmd *cobra.Command, a *app, fl *computeFlags, args []string) error {
	ctx := cmd.Context()
	modelPath, spkRspec, wavRspec, vadRspec, outWspec := args[0], args[1], args[2], args[3], args[4]

	summary, err := cli.ParseFormat(fl.summary)
	if err != nil {
		return err
	}

	cfg := *a.cfg
	files := a.resolver(cmd)
	if fl.featureConfig != "" {
		data, err := files.ReadFile(ctx, fl.featureConfig)
		if err != nil {
			return fmt.Errorf("feature config: %w", err)
		}
		if err := cfg.DecodeFeature(data); err != nil {
			return fmt.Errorf("feature config %s: %w", fl.featureConfig, err)
		}
	}
	fl.merge(cmd, &cfg)
	if !cfg.Compute.Online {
		cfg.Feature.Aux.Greedy = true
		cfg.Compute.ChunkLength = -1
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	info, err := feature.NewInfo(cfg.Feature)
	if err != nil {
		return err
	}
	if name := cfg.Compute.AdaptationTemplate; name != "" {
		if err := loadTemplate(ctx, files, name, info); err != nil {
			return err
		}
	}

	engine, priors, err := loadEngine(ctx, files, modelPath, &cfg)
	if err != nil {
		return err
	}
	if c, ok := engine.(io.Closer); ok {
		defer c.Close()
	}

	chunk := engine.Info().ChunkConfig(cfg.Decodable.FramesPerChunk)
	if cfg.Decodable.LeftContext >= 0 {
		chunk.LeftContext = cfg.Decodable.LeftContext
	}
	if cfg.Decodable.RightContext >= 0 {
		chunk.RightContext = cfg.Decodable.RightContext
	}
	scorer, err := nnet.NewScorer(engine, nnet.ScorerOptions{
		Chunk:         chunk,
		LogPriors:     priors,
		AcousticScale: cfg.Decodable.AcousticScale,
		ApplyLog:      cfg.Decodable.ApplyLog,
		Logger:        a.log,
	})
	if err != nil {
		return err
	}

	opts := a.tableOptions(cmd)
	speakers, err := table.OpenSpeakerReader(ctx, spkRspec, opts)
	if err != nil {
		return err
	}
	defer speakers.Close()

	waves, err := table.OpenWaveReader(ctx, wavRspec, opts)
	if err != nil {
		return err
	}
	defer waves.Close()

	var masks compute.Masks
	if cfg.Compute.DoVAD {
		vr, err := table.OpenVectorReader(ctx, vadRspec, opts)
		if err != nil {
			return err
		}
		defer vr.Close()
		masks = vr
	}

	out, err := table.CreateMatrixWriter(ctx, outWspec, opts)
	if err != nil {
		return err
	}

	runner, err := compute.NewRunner(info, scorer, waves, masks, out, compute.Options{
		ChunkLength: cfg.Compute.ChunkLength,
		DoVAD:       cfg.Compute.DoVAD,
		Resample:    cfg.Compute.Resample,
		Logger:      a.log,
	})
	if err != nil {
		out.Close()
		return err
	}

	a.log.Info("compute: starting", "model", modelPath, "chunk", chunk.ChunkSize,
		"left", chunk.LeftContext, "right", chunk.RightContext, "online", cfg.Compute.Online)
	st, runErr := runner.Run(ctx, speakers.All())
	if err := errors.Join(runErr, out.Close()); err != nil {
		return err
	}

	if fl.summary != "" {
		if err := cli.Output(statsSummary{st}, cli.OutputOptions{Format: summary, Writer: cmd.ErrOrStderr()}); err != nil {
			return err
		}
	}
	if st.Done == 0 {
		return noOutput("no utterances were scored (%d errors)", st.Errors)
	}
	return nil
}

// loadTemplate installs the adaptation state stored at name as the
// starting state of every speaker.
func loadTemplate(ctx context.Context, files *storage.Resolver, name string, info *feature.Info) error {
	data, err := files.ReadFile(ctx, name)
	if err != nil {
		return fmt.Errorf("adaptation template: %w", err)
	}
	var s feature.AdaptationState
	if err := s.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("adaptation template %s: %w", name, err)
	}
	if err := info.SetTemplate(&s); err != nil {
		return fmt.Errorf("adaptation template %s: %w", name, err)
	}
	return nil
}

// loadEngine reads the model and returns its engine and log priors.
func loadEngine(ctx context.Context, files *storage.Resolver, name string, cfg *config.File) (nnet.Engine, []float32, error) {
	data, err := files.ReadFile(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("model: %w", err)
	}
	if strings.EqualFold(path.Ext(name), ".onnx") {
		e, err := onnx.NewEngine(data, cfg.ONNX)
		if err != nil {
			return nil, nil, fmt.Errorf("model %s: %w", name, err)
		}
		return e, nil, nil
	}
	m, err := affine.Decode(data, affine.FormatOf(name))
	if err != nil {
		return nil, nil, fmt.Errorf("model %s: %w", name, err)
	}
	e, err := affine.NewEngine(m)
	if err != nil {
		return nil, nil, fmt.Errorf("model %s: %w", name, err)
	}
	return e, m.LogPriors, nil
}

// statsSummary renders compute.Stats as a table.
type statsSummary struct {
	compute.Stats `yaml:",inline"`
}

func (s statsSummary) Summary() cli.Summary {
	return cli.Summary{
		Title: "amcompute " + s.RunID.String(),
		Fields: []cli.Field{
			{Label: "speakers", Value: cli.FormatCount(int64(s.Speakers))},
			{Label: "utterances", Value: cli.FormatCount(int64(s.Done))},
			{Label: "errors", Value: cli.FormatCount(int64(s.Errors)), Warn: s.Errors > 0},
			{Label: "missing", Value: cli.FormatCount(int64(s.Missing)), Warn: s.Missing > 0},
			{Label: "too short", Value: cli.FormatCount(int64(s.TooShort)), Warn: s.TooShort > 0},
			{Label: "input frames", Value: cli.FormatCount(s.InputFrames)},
			{Label: "output frames", Value: cli.FormatCount(s.OutputFrames)},
			{Label: "elapsed", Value: cli.FormatDuration(s.Elapsed)},
			{Label: "speed", Value: cli.FormatRate(s.InputFrames, s.Elapsed)},
		},
	}
}
