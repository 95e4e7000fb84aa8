package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kass/go-store-map/pkg/app"
	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/rtree"
)

var (
	nearestLat float64
	nearestLng float64
	nearestN   int
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the stores closest to a point",
	Long:  `Searches the resolved stores with the R-Tree index. Run resolve first so the directory snapshot has coordinates.`,
	RunE:  runNearest,
}

func init() {
	nearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "Latitude (default: map center)")
	nearestCmd.Flags().Float64Var(&nearestLng, "lng", 0, "Longitude (default: map center)")
	nearestCmd.Flags().IntVarP(&nearestN, "neighbors", "n", 5, "Number of stores to return")
	rootCmd.AddCommand(nearestCmd)
}

func runNearest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	center := env.MapOptions().Center
	if cmd.Flags().Changed("lat") {
		center.Lat = nearestLat
	}
	if cmd.Flags().Changed("lng") {
		center.Lng = nearestLng
	}

	records := env.LoadDirectory(ctx)
	index := rtree.NewMarkerIndex()
	indexed := index.IndexRecords(records)
	if indexed == 0 {
		fmt.Println("No resolved stores yet; run 'storemap resolve' first.")
		return nil
	}

	results := index.NearestNeighbors(models.Location{Lat: center.Lat, Lng: center.Lng}, nearestN)

	fmt.Printf("%d nearest of %d resolved stores to (%.6f, %.6f)\n\n", len(results), indexed, center.Lat, center.Lng)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tDISTANCE\tADDRESS")
	for _, rec := range results {
		d := rtree.Distance(center.Lat, center.Lng, *rec.Lat, *rec.Lng)
		fmt.Fprintf(w, "%s\t%.2f km\t%s\n", rec.Key, d, rec.Address)
	}
	return w.Flush()
}
