package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kass/go-store-map/pkg/app"
	"github.com/kass/go-store-map/pkg/directory"
	"github.com/kass/go-store-map/pkg/export"
	"github.com/kass/go-store-map/pkg/geocode"
)

var resolveGeoJSON string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Geocode the store directory",
	Long: `Resolves every store address one at a time, backing off when the provider
throttles, and saves the coordinates with the directory snapshot.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveGeoJSON, "geojson", "o", "", "Also write resolved stores as GeoJSON to this file")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	records := env.LoadDirectory(ctx)
	fmt.Printf("Resolving %d stores...\n", len(records))

	sum := env.Sequencer().ResolveAll(ctx, records, func(p geocode.Progress) {
		if pos, ok := p.Record.Position(); ok {
			fmt.Printf("  [%d/%d] %-40s %10.6f, %11.6f\n", p.Index+1, len(records), p.Record.Key, pos.Lat, pos.Lng)
			return
		}
		fmt.Printf("  [%d/%d] %-40s unresolved\n", p.Index+1, len(records), p.Record.Key)
	})

	catalog := directory.NewCatalog(records)
	if err := env.Snapshotter(catalog.Records).Save(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	fmt.Printf("\nResolved: %d  Skipped: %d  Requests: %d\n", sum.Resolved, sum.Skipped, sum.Requests)
	if sum.Canceled {
		fmt.Println("Interrupted; progress so far was saved.")
	}

	if resolveGeoJSON != "" {
		data, err := export.MarshalGeoJSON(records)
		if err != nil {
			return err
		}
		if err := os.WriteFile(resolveGeoJSON, data, 0o644); err != nil {
			return fmt.Errorf("write geojson: %w", err)
		}
		fmt.Printf("GeoJSON written to %s\n", resolveGeoJSON)
	}

	return nil
}
