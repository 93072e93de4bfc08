package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hireloop/jobgeo/internal/extract"
	"github.com/hireloop/jobgeo/internal/model"
	"github.com/hireloop/jobgeo/internal/proximity"
	"github.com/hireloop/jobgeo/internal/store"
)

var (
	nearbyLat     float64
	nearbyLng     float64
	nearbyRadius  float64
	nearbyLimit   int
	nearbyShowAll bool
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List jobs within a radius of a point",
	Long: `Ranks jobs by great-circle distance from the given origin. Jobs without
stored coordinates are geocoded on the fly, a few at a time, and folded into
the results as they resolve. Use --show-all to list every job regardless of
distance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The CLI has no positioning hardware; the origin comes from flags
		// or not at all, and "not at all" is a distinct failure from an
		// empty result set.
		locator := flagLocator(cmd)
		origin, err := locator.Current(ctx)
		if err != nil {
			return eris.Wrap(err, "pass --lat and --lng")
		}

		radius := nearbyRadius
		if radius <= 0 {
			radius = cfg.Nearby.RadiusKm
		}
		limit := nearbyLimit
		if limit <= 0 {
			limit = cfg.Nearby.CandidateLimit
		}

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		jobs, err := store.NewJobStore(pool).ListWithCompanies(ctx, limit)
		if err != nil {
			return err
		}
		candidates := make([]extract.Entity, 0, len(jobs))
		for _, j := range jobs {
			candidates = append(candidates, j)
		}

		cache := proximity.NewCache()
		matcher := proximity.NewMatcher(cache)

		matches, unresolved := matcher.FindNearby(origin, radius, candidates, nearbyShowAll)

		if len(unresolved) > 0 {
			fmt.Printf("resolving %d jobs without stored coordinates...\n", len(unresolved))
			lazy := proximity.NewLazyResolver(buildResolver(pool), cache,
				proximity.WithLazyInterval(lazyPause()),
				proximity.WithLazyCap(cfg.Nearby.LazyCap),
			)
			if n := lazy.Run(ctx, unresolved, nil); n > 0 {
				matches, unresolved = matcher.FindNearby(origin, radius, candidates, nearbyShowAll)
			}
		}

		if len(matches) == 0 {
			fmt.Printf("no jobs within %.1f km of (%.4f, %.4f)\n", radius, origin.Latitude, origin.Longitude)
			return nil
		}

		for _, m := range matches {
			job, ok := m.Entity.(*model.Job)
			if !ok {
				continue
			}
			fmt.Printf("%7.2f km  %-40s %s\n", m.DistanceKm, truncate(job.Title, 40), job.Location)
		}
		if len(unresolved) > 0 {
			fmt.Printf("(%d jobs could not be located)\n", len(unresolved))
		}
		return nil
	},
}

// flagLocator sources the origin from --lat/--lng, reporting
// ErrLocationUnavailable when either flag was not given.
func flagLocator(cmd *cobra.Command) proximity.Locator {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return proximity.LocatorFunc(func(context.Context) (model.GeoPoint, error) {
			return model.GeoPoint{}, proximity.ErrLocationUnavailable
		})
	}
	p, err := model.NewGeoPoint(nearbyLat, nearbyLng)
	if err != nil {
		return proximity.LocatorFunc(func(context.Context) (model.GeoPoint, error) {
			return model.GeoPoint{}, err
		})
	}
	return proximity.StaticLocator(p)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "origin latitude")
	nearbyCmd.Flags().Float64Var(&nearbyLng, "lng", 0, "origin longitude")
	nearbyCmd.Flags().Float64Var(&nearbyRadius, "radius", 0, "radius in kilometers (default from config)")
	nearbyCmd.Flags().IntVar(&nearbyLimit, "limit", 0, "maximum candidate jobs to load (default from config)")
	nearbyCmd.Flags().BoolVar(&nearbyShowAll, "show-all", false, "list all jobs ranked by distance, ignoring the radius")
	rootCmd.AddCommand(nearbyCmd)
}
