package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hireloop/jobgeo/internal/extract"
	"github.com/hireloop/jobgeo/internal/model"
	"github.com/hireloop/jobgeo/internal/proximity"
	"github.com/hireloop/jobgeo/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proximity query server",
	Long: `Serves GET /api/nearby/jobs. The server keeps a session coordinate cache
for jobs geocoded on the fly, so repeat queries get faster as the cache warms.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		cache := proximity.NewCache()
		srv := &nearbyServer{
			jobs:    store.NewJobStore(pool),
			cache:   cache,
			matcher: proximity.NewMatcher(cache),
			lazy: proximity.NewLazyResolver(buildResolver(pool), cache,
				proximity.WithLazyInterval(lazyPause()),
				proximity.WithLazyCap(cfg.Nearby.LazyCap),
			),
		}

		r := buildRouter(srv)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutCtx)
		})

		return g.Wait()
	},
}

// buildRouter wires the HTTP routes.
func buildRouter(srv *nearbyServer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			zap.L().Warn("encode response", zap.Error(err))
		}
	})
	r.Get("/api/nearby/jobs", srv.handleNearbyJobs)
	return r
}

// nearbyServer answers proximity queries over the jobs collection. The
// session cache and the lazy resolver live for the life of the process.
type nearbyServer struct {
	jobs      *store.JobStore
	cache     *proximity.Cache
	matcher   *proximity.Matcher
	lazy      *proximity.LazyResolver
	resolving atomic.Bool
}

// jobMatch is one element of the response, with the resolved point as
// GeoJSON geometry.
type jobMatch struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Location   string          `json:"location"`
	DistanceKm float64         `json:"distanceKm"`
	Point      json.RawMessage `json:"point"`
}

type nearbyResponse struct {
	Origin   json.RawMessage `json:"origin"`
	RadiusKm float64         `json:"radiusKm"`
	Matches  []jobMatch      `json:"matches"`
	Pending  int             `json:"pending"`
}

func (s *nearbyServer) handleNearbyJobs(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		http.Error(w, `{"error":"lat and lng are required"}`, http.StatusBadRequest)
		return
	}
	origin, err := model.NewGeoPoint(lat, lng)
	if err != nil {
		http.Error(w, `{"error":"lat/lng out of range"}`, http.StatusBadRequest)
		return
	}

	radius := cfg.Nearby.RadiusKm
	if v := q.Get("radius"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil || radius <= 0 {
			http.Error(w, `{"error":"radius must be a positive number"}`, http.StatusBadRequest)
			return
		}
	}
	showAll := q.Get("show_all") == "true"

	jobs, err := s.jobs.ListWithCompanies(req.Context(), cfg.Nearby.CandidateLimit)
	if err != nil {
		zap.L().Error("list jobs", zap.Error(err))
		http.Error(w, `{"error":"storage unavailable"}`, http.StatusInternalServerError)
		return
	}
	candidates := make([]extract.Entity, 0, len(jobs))
	for _, j := range jobs {
		candidates = append(candidates, j)
	}

	matches, unresolved := s.matcher.FindNearby(origin, radius, candidates, showAll)

	// One background resolution pass at a time; later requests pick up
	// whatever it has cached so far.
	if len(unresolved) > 0 && s.resolving.CompareAndSwap(false, true) {
		go func(pending []extract.Entity) {
			defer s.resolving.Store(false)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			s.lazy.Run(ctx, pending, nil)
		}(unresolved)
	}

	resp := nearbyResponse{
		Origin:   geoJSONPoint(origin),
		RadiusKm: radius,
		Matches:  make([]jobMatch, 0, len(matches)),
		Pending:  len(unresolved),
	}
	for _, m := range matches {
		job, ok := m.Entity.(*model.Job)
		if !ok {
			continue
		}
		resp.Matches = append(resp.Matches, jobMatch{
			ID:         job.ID,
			Title:      job.Title,
			Location:   job.Location,
			DistanceKm: m.DistanceKm,
			Point:      geoJSONPoint(m.Point),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

// geoJSONPoint encodes a coordinate as a GeoJSON Point geometry
// (longitude first, per the format).
func geoJSONPoint(p model.GeoPoint) json.RawMessage {
	raw, err := geojson.Marshal(geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}))
	if err != nil {
		return nil
	}
	return raw
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
