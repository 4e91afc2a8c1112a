// Package commands implements the amcompute cobra command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/haivivi/amcompute/cmd/amcompute/internal/config"
	"github.com/haivivi/amcompute/pkg/cli"
	"github.com/haivivi/amcompute/pkg/storage"
	"github.com/haivivi/amcompute/pkg/table"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitNoOutput = 1   // the run completed without producing anything
	ExitFailure  = 255 // unrecoverable error
)

// exitError carries a non-zero exit code for a run that did not fail.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return ExitFailure
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	verbose    bool
	logFormat  string
	configPath string

	cfg *config.File
	log *slog.Logger

	s3Client func() *s3.Client
}

// Execute runs the root command. SIGINT cancels the run between utterances.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "amcompute",
		Short: "Acoustic model scoring for speech recognition",
		Long: `amcompute - Compute acoustic model scores for speech recognition.

Waveforms are turned into filterbank features, optionally restricted to
voiced frames, and scored by a neural acoustic model in context-padded
chunks. One score matrix is written per utterance.

Tables are named by Kaldi-style specifiers:
  ark:PATH      msgpack record stream
  ark,t:PATH    text archive
  scp:PATH      "key location" script
  badger:DIR    BadgerDB table

PATH may be "-" for stdin/stdout, a local path, or s3://bucket/key.

Examples:
  # Score every utterance with a CPU reference model
  amcompute compute model.yaml ark:spk2utt scp:wav.scp ark,t:vad.ark ark,t:scores.ark

  # Offline aux estimation, whole waveforms, voiced frames only
  amcompute compute --online=false --do-vad model.onnx ark:spk2utt scp:wav.scp ark,t:vad.ark badger:out

  # Add insertion penalties to lattices, exempting hotwords
  amcompute add-penalty --word-ins-penalty 0.5 --hotword-ids hot.txt ark,t:in.lat ark,t:out.lat`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", cli.LogText, "log format: text or json")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")

	cmd.AddCommand(
		newComputeCmd(a),
		newAddPenaltyCmd(a),
		newTableCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	log, err := cli.NewLogger(cmd.ErrOrStderr(), a.logFormat, a.verbose)
	if err != nil {
		return err
	}
	a.log = log
	slog.SetDefault(log)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.s3Client = sync.OnceValue(func() *s3.Client {
		return storage.NewS3Client(cfg.S3)
	})
	return nil
}

// resolver serves "-" from the command's streams and s3:// from the
// configured endpoint.
func (a *app) resolver(cmd *cobra.Command) *storage.Resolver {
	return &storage.Resolver{
		S3: func(bucket string) storage.Files {
			return storage.NewS3(a.s3Client(), bucket)
		},
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
	}
}

func (a *app) tableOptions(cmd *cobra.Command) table.Options {
	return table.Options{Files: a.resolver(cmd)}
}

// noOutput reports a completed run that produced nothing.
func noOutput(format string, args ...any) error {
	return &exitError{code: ExitNoOutput, msg: fmt.Sprintf(format, args...)}
}
