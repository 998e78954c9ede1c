package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agentic-research/flattree/api"
	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/index"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

var (
	dumpNode   bool
	searchMode string
)

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		n, ok := snap.GetNode(args[0])
		if !ok {
			return fmt.Errorf("node %q not found", args[0])
		}
		if dumpNode {
			spew.Fdump(cmd.OutOrStdout(), n)
			return nil
		}
		return printJSON(cmd.OutOrStdout(), n.API())
	},
}

var childrenCmd = &cobra.Command{
	Use:   "children KEY",
	Short: "List the direct children of a node in source order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), graph.APINodes(snap.Children(args[0])))
	},
}

var ancestorsCmd = &cobra.Command{
	Use:   "ancestors KEY",
	Short: "List the ancestors of a node, parent first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), graph.APINodes(snap.Ancestors(args[0])))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search FIELD QUERY",
	Short: "Find node keys whose searchable field matches QUERY",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := index.ParseMode(searchMode)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		keys := snap.Search(args[0], args[1], mode)
		if keys == nil {
			keys = []string{}
		}
		return printJSON(cmd.OutOrStdout(), api.SearchResult{Field: args[0], Query: args[1], Mode: mode.String(), Keys: keys})
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print every node indented by depth",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		snap.Walk(func(n *graph.Node) bool {
			fmt.Fprintf(out, "%s%s [%s] %s\n", strings.Repeat("  ", n.Depth), n.Title, n.Type, n.Key)
			return true
		})
		return nil
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	getCmd.Flags().BoolVar(&dumpNode, "dump", false, "Dump the full node structure for debugging")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "exact", "Match mode: exact or substring")

	rootCmd.AddCommand(getCmd, childrenCmd, ancestorsCmd, searchCmd, treeCmd)
}
