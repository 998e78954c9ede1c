package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/httpapi"
	"github.com/agentic-research/flattree/internal/mcpserver"
	"github.com/agentic-research/flattree/internal/watch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	httpAddr   string
	watchFiles bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries over MCP (stdio) or HTTP",
	Long: `Serve the flattened tree. Without --http the MCP tools get_node, get_children,
get_ancestors, search and roots are served on stdin/stdout. With --watch the
spec and data files are watched and a rebuilt snapshot is swapped in after each
change; readers never observe a partial rebuild.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := source()
		if err != nil {
			return err
		}
		log := logrus.StandardLogger()
		snap, err := src.Build(log)
		if err != nil {
			return err
		}
		g := graph.NewHotSwapGraph(snap)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if watchFiles {
			w, err := watch.New(g, func() (*graph.Snapshot, error) { return src.Build(log) }, log, src.SpecPath, src.DataPath)
			if err != nil {
				return err
			}
			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("watcher stopped")
				}
			}()
		}

		if httpAddr == "" {
			return mcpserver.New(g, version, log).ServeStdio()
		}

		srv := &http.Server{
			Addr:              httpAddr,
			Handler:           httpapi.NewServer(g, log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(cmd.ErrOrStderr(), "Serving HTTP on %s\n", httpAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "http", "", "Serve the HTTP API on this address instead of MCP stdio")
	serveCmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "Rebuild and swap the snapshot when spec or data files change")
	rootCmd.AddCommand(serveCmd)
}
