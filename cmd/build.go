package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/flattree/internal/ingest"
	"github.com/spf13/cobra"
)

var exportPath string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Flatten the data source and print the build report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		r := snap.Report()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "snapshot:  %s\n", r.ID)
		fmt.Fprintf(out, "nodes:     %d\n", r.Nodes)
		fmt.Fprintf(out, "roots:     %v\n", snap.Roots())
		fmt.Fprintf(out, "indexed:   %d entries, %d distinct values\n", r.Postings, r.Values)
		fmt.Fprintf(out, "fields:    %v\n", snap.Index().Fields())
		fmt.Fprintf(out, "specs:     %v\n", r.Specs)
		fmt.Fprintf(out, "elapsed:   %v\n", r.Elapsed)

		if exportPath != "" {
			_ = os.Remove(exportPath) // Overwrite
			if err := ingest.ExportSQLite(snap, exportPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "exported:  %s\n", exportPath)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&exportPath, "out", "o", "", "Also write the node table to a SQLite database")
	rootCmd.AddCommand(buildCmd)
}
