package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kass/go-store-map/pkg/app"
	"github.com/kass/go-store-map/pkg/export"
	"github.com/kass/go-store-map/pkg/mapview"
	"github.com/kass/go-store-map/pkg/models"
)

var (
	markersLat     float64
	markersLng     float64
	markersZoom    int
	markersWidth   int
	markersHeight  int
	markersGeoJSON bool
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "List the stores visible in a map viewport",
	Long: `Loads the map headlessly at the given center and zoom, resolves the
directory and prints the stores whose pins are inside the viewport.`,
	RunE: runMarkers,
}

func init() {
	markersCmd.Flags().Float64Var(&markersLat, "lat", 0, "Center latitude (default from config)")
	markersCmd.Flags().Float64Var(&markersLng, "lng", 0, "Center longitude (default from config)")
	markersCmd.Flags().IntVarP(&markersZoom, "zoom", "z", 0, "Zoom level (default from config)")
	markersCmd.Flags().IntVar(&markersWidth, "width", 0, "Viewport width in pixels (default from config)")
	markersCmd.Flags().IntVar(&markersHeight, "height", 0, "Viewport height in pixels (default from config)")
	markersCmd.Flags().BoolVar(&markersGeoJSON, "geojson", false, "Print GeoJSON instead of a table")
	rootCmd.AddCommand(markersCmd)
}

func runMarkers(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	opts := env.MapOptions()
	if cmd.Flags().Changed("lat") {
		opts.Center.Lat = markersLat
	}
	if cmd.Flags().Changed("lng") {
		opts.Center.Lng = markersLng
	}
	if cmd.Flags().Changed("zoom") {
		opts.Zoom = markersZoom
	}

	width, height := cfg.Map.Width, cfg.Map.Height
	if markersWidth > 0 {
		width = markersWidth
	}
	if markersHeight > 0 {
		height = markersHeight
	}

	host := mapview.NewHeadlessHost(width, height)
	view := mapview.New(host.Loader(), env.Sequencer(), mapview.Options{MapOptions: opts})
	defer view.Close()

	records := env.LoadDirectory(ctx)
	view.Start(ctx, records)

	select {
	case <-view.Resolved():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := view.Err(); err != nil {
		return err
	}

	markers, err := view.Markers(ctx)
	if err != nil {
		return err
	}

	visible := make([]*models.LocationRecord, len(markers))
	for i, m := range markers {
		visible[i] = m.Record.Clone()
	}

	// the sequencer is done with records; keep their coordinates for the next run
	if view.Summary().Resolved > 0 {
		snap := env.Snapshotter(func() []*models.LocationRecord { return records })
		if err := snap.Save(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}

	if markersGeoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(export.FeatureCollection(visible))
	}

	b := host.Bounds()
	fmt.Printf("Viewport NE(%.5f, %.5f) SW(%.5f, %.5f), %d of %d stores visible\n\n",
		b.NorthEastLat, b.NorthEastLng, b.SouthWestLat, b.SouthWestLng, len(visible), len(records))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tLAT\tLNG\tFAVORITE\tADDRESS")
	for _, rec := range visible {
		fav := ""
		if env.Favorites.Contains(rec.Key) {
			fav = "*"
		}
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%s\t%s\n", rec.Key, *rec.Lat, *rec.Lng, fav, rec.Address)
	}
	return w.Flush()
}
