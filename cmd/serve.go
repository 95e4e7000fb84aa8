package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kass/go-store-map/pkg/app"
	"github.com/kass/go-store-map/pkg/directory"
	"github.com/kass/go-store-map/pkg/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve markers and favorites over HTTP",
	Long: `Starts the HTTP API. Stores are geocoded in the background and show up in
/markers as they resolve; the directory snapshot is saved periodically and on
shutdown.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	records := env.LoadDirectory(ctx)
	catalog := directory.NewCatalog(records)
	api := server.New(catalog, env.Favorites)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", port), zap.Int("stores", len(records)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		zap.L().Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		sum := env.Sequencer().ResolveAll(gctx, records, api.Progress)
		zap.L().Info("geocoding finished",
			zap.Int("resolved", sum.Resolved),
			zap.Int("skipped", sum.Skipped),
			zap.Int("requests", sum.Requests),
			zap.Bool("canceled", sum.Canceled),
		)
		return nil
	})

	g.Go(func() error {
		return env.Snapshotter(catalog.Records).Run(gctx)
	})

	return g.Wait()
}
