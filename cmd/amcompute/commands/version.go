package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/amcompute/cmd/amcompute/internal/build"
	"github.com/haivivi/amcompute/pkg/cli"
	"github.com/haivivi/amcompute/pkg/onnx"
)

func newVersionCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "" {
				f, err := cli.ParseFormat(format)
				if err != nil {
					return err
				}
				return cli.Output(build.Get(onnx.Available), cli.OutputOptions{Format: f, Writer: cmd.OutOrStdout()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
			if a.verbose {
				info := build.Get(onnx.Available)
				fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s\n", info.Go)
				fmt.Fprintf(cmd.OutOrStdout(), "  onnx:   %t\n", info.ONNX)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: yaml or json")
	return cmd
}
