package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/amcompute/pkg/table"
)

func newTableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Table utilities",
	}
	cmd.AddCommand(newTableImportCmd(a))
	return cmd
}

func newTableImportCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import [flags] <archive-rspecifier> <badger-dir>",
		Short: "Copy an archive into a BadgerDB table",
		Long: `Copy every record of an ark: or ark,t: archive into a BadgerDB
directory, so that it can be read back as badger:DIR.

Voicing masks are stored under the "vectors" table by default, which is
where compute reads them from.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.tableOptions(cmd)
			opts.Table = name
			n, err := table.Import(cmd.Context(), args[0], args[1], opts)
			if err != nil {
				return err
			}
			a.log.Info("table: imported", "records", n, "dir", args[1], "table", name)
			if n == 0 {
				return noOutput("no records in %s", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "table", table.VectorTable, "destination table name")
	return cmd
}
