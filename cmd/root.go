package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hireloop/jobgeo/internal/config"
	"github.com/hireloop/jobgeo/internal/db"
	"github.com/hireloop/jobgeo/pkg/geocode"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "jobgeo",
	Short: "Geospatial resolution for job and company records",
	Long:  "Resolves free-text locations on job and company records to coordinates via Google/Nominatim, backfills missing ones, and answers radius queries.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// storePool creates the connection pool every storage-touching command
// shares. A missing connection string is the fatal precondition: commands
// abort here, before any work, with exit code 1.
func storePool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("no database_url configured (set store.database_url or JOBGEO_STORE_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping database")
	}

	return pool, nil
}

// buildResolver assembles the provider chain: Google when a key is
// configured, Nominatim always, cross-run cache when enabled.
func buildResolver(pool db.Pool) geocode.Client {
	providers := []geocode.Provider{
		geocode.NewGoogleProvider(cfg.Google.APIKey),
		geocode.NewNominatimProvider(
			geocode.WithNominatimBaseURL(cfg.Nominatim.BaseURL),
			geocode.WithNominatimUserAgent(cfg.Nominatim.UserAgent),
		),
	}

	var opts []geocode.ChainOption
	if cfg.Geocode.CacheEnabled && pool != nil {
		opts = append(opts, geocode.WithChainCache(
			geocode.NewCache(pool, geocode.WithCacheTTLDays(cfg.Geocode.CacheTTLDays)),
		))
	}
	return geocode.NewChain(providers, opts...)
}

// lazyPause returns the configured interactive inter-call delay.
func lazyPause() time.Duration {
	return time.Duration(cfg.Nearby.LazyPauseMs) * time.Millisecond
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
