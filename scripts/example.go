package main

import (
	"context"
	"fmt"
	"log"

	"github.com/kass/go-store-map/pkg/favorites"
	"github.com/kass/go-store-map/pkg/geocode"
	"github.com/kass/go-store-map/pkg/mapview"
	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/rtree"
	"github.com/kass/go-store-map/pkg/storage"
)

func main() {
	ctx := context.Background()

	// Known coordinates stand in for a geocoding service
	known := map[string]models.Location{
		"Av. Insurgentes Sur 1235, CDMX":   {Lat: 19.3727, Lng: -99.1781},
		"Paseo de la Reforma 222, CDMX":    {Lat: 19.4290, Lng: -99.1617},
		"Av. Presidente Masaryk 360, CDMX": {Lat: 19.4318, Lng: -99.1985},
		"Calz. de Tlalpan 3465, CDMX":      {Lat: 19.3024, Lng: -99.1456},
		"Av. Universidad 1000, CDMX":       {Lat: 19.3598, Lng: -99.1652},
	}
	provider := geocode.ProviderFunc(func(_ context.Context, address string) (geocode.Response, error) {
		loc, ok := known[address]
		if !ok {
			return geocode.Response{Status: geocode.StatusZeroResults}, nil
		}
		return geocode.Response{
			Status:  geocode.StatusOK,
			Results: []geocode.Result{{Lat: loc.Lat, Lng: loc.Lng}},
		}, nil
	})

	favs, err := favorites.Open(ctx, storage.NewMemory(), favorites.DefaultKey)
	if err != nil {
		log.Fatalf("Failed to open favorites: %v", err)
	}

	var records []*models.LocationRecord
	for address := range known {
		records = append(records, &models.LocationRecord{
			Key:      address,
			Address:  address,
			Title:    address,
			Content:  "<b>" + address + "</b>",
			Icon:     "./images/store.png",
			Callback: favs.ClickHandler("./images/store_on.png"),
		})
	}

	// Headless map centered on Mexico City
	host := mapview.NewHeadlessHost(1024, 768)
	view := mapview.New(host.Loader(), geocode.NewSequencer(provider), mapview.Options{
		MapOptions: mapview.MapOptions{
			Center: models.Location{Lat: 19.4326077, Lng: -99.133208},
			Zoom:   11,
			Styles: mapview.BuildStyles(mapview.DefaultColors),
		},
	})
	view.Start(ctx, records)
	defer view.Close()

	<-view.Resolved()
	sum := view.Summary()
	fmt.Printf("Resolved %d stores with %d requests\n", sum.Resolved, sum.Requests)

	bounds := host.Bounds()
	fmt.Printf("\nViewport: NE(%.4f, %.4f) SW(%.4f, %.4f)\n",
		bounds.NorthEastLat, bounds.NorthEastLng, bounds.SouthWestLat, bounds.SouthWestLng)

	markers, err := view.Markers(ctx)
	if err != nil {
		log.Fatalf("Failed to read markers: %v", err)
	}
	fmt.Printf("%d markers on the map:\n", len(markers))
	for _, m := range markers {
		fmt.Printf("  - %s\n", m.Record.Title)
	}

	// Click the first pin: the info window opens and the store becomes a favorite
	pins := host.Pins()
	if len(pins) > 0 {
		host.Click(pins[0].ID)
		if _, err := view.Markers(ctx); err != nil {
			log.Fatalf("Failed to sync with the map: %v", err)
		}
		info, _ := host.InfoWindowState()
		fmt.Printf("\nInfo window open=%v content=%q\n", info.Open, info.Content)
		fmt.Printf("Favorites: %d\n", favs.Len())
	}

	// Zoom out and the reconciler re-mounts what is now visible
	host.ZoomBy(-3)
	markers, _ = view.Markers(ctx)
	fmt.Printf("\nAfter zooming out: %d markers\n", len(markers))

	// Nearest stores to the Zócalo with the R-Tree index
	index := rtree.NewMarkerIndex()
	index.IndexRecords(records)
	zocalo := models.Location{Lat: 19.4326, Lng: -99.1332}
	fmt.Println("\nNearest stores to the Zócalo:")
	for _, rec := range index.NearestNeighbors(zocalo, 3) {
		fmt.Printf("  - %s (%.2f km)\n", rec.Title, rtree.Distance(zocalo.Lat, zocalo.Lng, *rec.Lat, *rec.Lng))
	}
}
