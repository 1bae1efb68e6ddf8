package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/closetlog/internal/api"
	"github.com/ajitpratap0/closetlog/internal/imageutil"
	"github.com/ajitpratap0/closetlog/internal/lifecycle"
	closetmcp "github.com/ajitpratap0/closetlog/internal/mcp"
)

func maintainCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Migrate inline images, sweep orphaned image files and bootstrap the name index",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("maintain: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			lm := lifecycle.NewManager(a.store, a.blobs, a.names, logger)
			report, err := lm.Run(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("maintain: %w", err)
			}

			out := cmd.OutOrStdout()
			if report.SkippedUnloaded {
				fmt.Fprintln(out, "Saved outfits could not be read; maintenance skipped so no images are removed.")
				return nil
			}
			fmt.Fprintf(out, "Maintenance report:\n")
			fmt.Fprintf(out, "  Migrated images:   %d\n", report.MigratedImages)
			fmt.Fprintf(out, "  Failed migrations: %d\n", report.FailedImages)
			fmt.Fprintf(out, "  Dropped inline:    %d\n", report.DroppedInline)
			fmt.Fprintf(out, "  Orphan images:     %d\n", report.OrphanBlobs)
			fmt.Fprintf(out, "  Names indexed:     %t\n", report.NamesBootstrapped)
			if dryRun {
				fmt.Fprintln(out, "  (dry run, no changes applied)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without applying")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/JSON API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			cache, err := imageutil.NewDecodeCache(a.blobs, cfg.Images.CacheSize, logger)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv := api.NewServer(api.Deps{
				Store:       a.store,
				Blobs:       a.blobs,
				Images:      cache,
				Categories:  a.categories,
				Names:       a.names,
				Search:      a.searchEngine(),
				Recommender: a.recommender(),
				Weather:     newWeather(a.loc, logger),
				At:          coordinates(),
				Classifier:  a.classifier(),
				Namer:       a.namer(),
			}, logger, cfg.API.AuthToken)

			if cfg.API.AuthToken == "" {
				logger.Warn("HTTP API: auth is DISABLED; set CLOSETLOG_API_AUTH_TOKEN or api.auth_token to require a bearer token")
			}

			httpSrv := &http.Server{
				Addr:              cfg.API.ListenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP API server starting", "addr", cfg.API.ListenAddr)
				if listenErr := httpSrv.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
					errCh <- fmt.Errorf("serve: HTTP server: %w", listenErr)
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case startErr := <-errCh:
				return startErr
			}

			const shutdownTimeout = 10 * time.Second
			if shutdownErr := api.Shutdown(httpSrv, shutdownTimeout); shutdownErr != nil {
				return fmt.Errorf("serve: graceful shutdown: %w", shutdownErr)
			}

			// ListenAndServe may return after Shutdown.
			return <-errCh
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  list_outfits        search, filter and sort outfits
  wear_outfit         record a wear for today
  unwear_outfit       remove today's wear
  wardrobe_stats      wear statistics
  suggest_item_names  item name autocomplete
  recommend_outfits   weather-aware suggestions

If the wardrobe cannot be opened the server still starts; tool calls return
MCP error responses.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			deps := closetmcp.Deps{At: coordinates()}
			a, openErr := openApp(ctx, logger)
			if openErr != nil {
				logger.Error("mcp: failed to open wardrobe; tool calls will fail", "error", openErr)
			} else {
				defer func() { _ = a.Close(ctx) }()
				deps.Store = a.store
				deps.Names = a.names
				deps.Search = a.searchEngine()
				deps.Recommender = a.recommender()
				deps.Weather = newWeather(a.loc, logger)
			}

			srv := closetmcp.NewServer(deps, logger)
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: closetlog MCP server starting", "transport", "stdio")
			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the local stores and configured services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			allOK := true

			a, err := openApp(ctx, logger)
			if err != nil {
				fmt.Fprintf(out, "Wardrobe: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = a.Close(ctx) }()
				fmt.Fprintf(out, "Wardrobe: OK (%s, %d outfits)\n", cfg.Storage.Driver, a.store.Len())
				if _, listErr := a.blobs.List(ctx); listErr != nil {
					fmt.Fprintf(out, "Images: FAIL (%v)\n", listErr)
					allOK = false
				} else {
					fmt.Fprintf(out, "Images: OK (%s)\n", a.blobs.Driver())
				}
			}

			// Weather and Claude are optional.
			if cfg.Weather.APIKey == "" {
				fmt.Fprintln(out, "Weather: SKIP (no API key configured)")
			} else {
				loc, _ := cfg.Location()
				if _, werr := newWeather(loc, logger).Refresh(ctx, coordinates()); werr != nil {
					fmt.Fprintf(out, "Weather: FAIL (%v)\n", werr)
					allOK = false
				} else {
					fmt.Fprintln(out, "Weather: OK")
				}
			}
			if cfg.Claude.APIKey == "" {
				fmt.Fprintln(out, "Claude API: SKIP (no API key configured, heuristic naming)")
			} else {
				fmt.Fprintln(out, "Claude API: OK")
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
