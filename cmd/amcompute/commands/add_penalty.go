package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/amcompute/pkg/lattice"
	"github.com/haivivi/amcompute/pkg/table"
)

type penaltyFlags struct {
	word       float32
	hotword    float32
	hotwordIDs string
}

func newAddPenaltyCmd(a *app) *cobra.Command {
	fl := &penaltyFlags{}
	cmd := &cobra.Command{
		Use:   "add-penalty [flags] <lattice-rspecifier> <lattice-wspecifier>",
		Short: "Add word insertion penalties to lattices",
		Long: `Add a word insertion penalty to the graph cost of every word arc.

With --hotword-ins-penalty 0 (the default) arcs whose label is listed in
--hotword-ids are left unchanged. Otherwise hotword arcs receive the
hotword penalty and all other word arcs the word penalty; the hotword
penalty must then be smaller than the word penalty. Epsilon arcs are
never changed.

Exit status is 0 if at least one lattice was written, 1 if none was,
and 255 on error.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddPenalty(cmd, a, fl, args)
		},
	}
	f := cmd.Flags()
	f.Float32Var(&fl.word, "word-ins-penalty", 0, "penalty added to every non-hotword word arc")
	f.Float32Var(&fl.hotword, "hotword-ins-penalty", 0, "penalty added to hotword arcs; 0 exempts them")
	f.Float32Var(&fl.hotword, "horword-ins-penalty", 0, "alias of --hotword-ins-penalty")
	f.MarkHidden("horword-ins-penalty")
	f.StringVar(&fl.hotwordIDs, "hotword-ids", "", "file of hotword label ids, one per line")
	return cmd
}

func runAddPenalty(cmd *cobra.Command, a *app, fl *penaltyFlags, args []string) error {
	ctx := cmd.Context()
	files := a.resolver(cmd)

	var hotwords []int64
	if fl.hotwordIDs != "" {
		rc, err := files.Open(ctx, fl.hotwordIDs)
		if err != nil {
			return fmt.Errorf("hotword ids: %w", err)
		}
		hotwords, err = lattice.ReadHotwords(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("hotword ids %s: %w", fl.hotwordIDs, err)
		}
	}
	policy := lattice.NewPolicy(fl.word, fl.hotword, hotwords)
	if err := policy.Validate(); err != nil {
		return err
	}

	opts := a.tableOptions(cmd)
	in, err := table.OpenLatticeReader(ctx, args[0], opts)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := table.CreateLatticeWriter(ctx, args[1], opts)
	if err != nil {
		return err
	}

	a.log.Debug("add-penalty: policy", "mode", policy.Mode(), "word", fl.word,
		"hotword", fl.hotword, "hotwords", len(hotwords))

	var done, arcs int
	var runErr error
	for kl, err := range in.All(ctx) {
		if err != nil {
			runErr = err
			break
		}
		arcs += policy.Apply(kl.Lattice)
		if err := out.Write(ctx, kl.Key, kl.Lattice); err != nil {
			runErr = err
			break
		}
		done++
	}
	if err := errors.Join(runErr, out.Close()); err != nil {
		return err
	}

	a.log.Info("add-penalty: done", "lattices", done, "arcs", arcs)
	if done == 0 {
		return noOutput("no lattices were processed")
	}
	return nil
}
