package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/ingest"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is stamped at link time.
var version = "dev"

var (
	specPath string
	dataPath string
	rootType string
	verbose  bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&specPath, "spec", "s", "flattree.hcl", "Path to tree spec (.hcl or .json)")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "Path to data source (.json, .yaml, .toml, .db)")
	rootCmd.PersistentFlags().StringVar(&rootType, "root", "", "Root record type (overrides the spec's root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log per-node flattening")
}

var rootCmd = &cobra.Command{
	Use:           "flattree",
	Short:         "Flatten record trees into a keyed, searchable node table",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

// source resolves the spec and data flags against the working directory.
func source() (ingest.Source, error) {
	if dataPath == "" {
		return ingest.Source{}, fmt.Errorf("--data is required")
	}
	spec, err := filepath.Abs(specPath)
	if err != nil {
		return ingest.Source{}, fmt.Errorf("resolve spec path: %w", err)
	}
	data, err := filepath.Abs(dataPath)
	if err != nil {
		return ingest.Source{}, fmt.Errorf("resolve data path: %w", err)
	}
	return ingest.Source{
		FS:       osfs.New("/"),
		SpecPath: spec,
		DataPath: data,
		Root:     rootType,
	}, nil
}

func loadSnapshot() (*graph.Snapshot, error) {
	src, err := source()
	if err != nil {
		return nil, err
	}
	return src.Build(logrus.StandardLogger())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
