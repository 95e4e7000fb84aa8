// Package server exposes the store map over HTTP: markers inside a
// viewport and the favorites list.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/directory"
	"github.com/kass/go-store-map/pkg/export"
	"github.com/kass/go-store-map/pkg/favorites"
	"github.com/kass/go-store-map/pkg/geocode"
	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/rtree"
)

// Server serves the directory and favorites
type Server struct {
	catalog   *directory.Catalog
	index     *rtree.MarkerIndex
	favorites *favorites.Set
}

// New creates a server over catalog and favs. The marker index is built
// from the catalog's resolved records.
func New(catalog *directory.Catalog, favs *favorites.Set) *Server {
	s := &Server{
		catalog:   catalog,
		index:     rtree.NewMarkerIndex(),
		favorites: favs,
	}
	s.Refresh()
	return s
}

// Refresh rebuilds the marker index from the catalog
func (s *Server) Refresh() {
	s.index.IndexRecords(s.catalog.Resolved())
}

// Progress records a sequencer step and refreshes the index when a record
// was resolved. It is meant to be passed to Sequencer.ResolveAll.
func (s *Server) Progress(p geocode.Progress) {
	s.catalog.Update(p.Index, p.Record)
	if p.Resolved {
		s.Refresh()
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/markers", s.handleMarkers)
	r.Route("/favorites", func(r chi.Router) {
		r.Get("/", s.handleListFavorites)
		r.Post("/", s.handleAddFavorite)
		r.Delete("/", s.handleClearFavorites)
		r.Delete("/{index}", s.handleRemoveFavorite)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"stores":   s.catalog.Len(),
		"resolved": s.index.Count(),
	})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	var records []*models.LocationRecord

	bounds, ok, err := parseBounds(r)
	switch {
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	case ok:
		records = s.index.QueryViewport(bounds)
	default:
		records = s.catalog.Resolved()
	}

	if r.URL.Query().Get("format") == "geojson" {
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(export.FeatureCollection(records))
		return
	}

	if records == nil {
		records = []*models.LocationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.favorites.List())
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, eris.New("key is required"))
		return
	}

	rec, ok := s.catalog.Find(req.Key)
	if !ok {
		writeError(w, http.StatusNotFound, eris.Errorf("store %q not found", req.Key))
		return
	}

	added, err := s.favorites.Add(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, s.favorites.List())
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, eris.New("index must be an integer"))
		return
	}

	if err := s.favorites.Remove(r.Context(), i); err != nil {
		status := http.StatusInternalServerError
		if eris.Is(err, favorites.ErrIndexOutOfRange) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, s.favorites.List())
}

func (s *Server) handleClearFavorites(w http.ResponseWriter, r *http.Request) {
	if err := s.favorites.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseBounds reads ne_lat, ne_lng, sw_lat and sw_lng. ok is false when none
// are given.
func parseBounds(r *http.Request) (models.ViewportBounds, bool, error) {
	q := r.URL.Query()
	names := []string{"ne_lat", "ne_lng", "sw_lat", "sw_lng"}

	present := 0
	for _, n := range names {
		if q.Has(n) {
			present++
		}
	}
	if present == 0 {
		return models.ViewportBounds{}, false, nil
	}
	if present != len(names) {
		return models.ViewportBounds{}, false, eris.New("ne_lat, ne_lng, sw_lat and sw_lng go together")
	}

	vals := make([]float64, len(names))
	for i, n := range names {
		v, err := strconv.ParseFloat(q.Get(n), 64)
		if err != nil {
			return models.ViewportBounds{}, false, eris.Wrapf(err, "invalid %s", n)
		}
		vals[i] = v
	}

	return models.ViewportBounds{
		NorthEastLat: vals[0],
		NorthEastLng: vals[1],
		SouthWestLat: vals[2],
		SouthWestLng: vals[3],
	}, true, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
