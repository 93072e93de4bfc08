package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hireloop/jobgeo/internal/backfill"
	"github.com/hireloop/jobgeo/internal/store"
)

var (
	backfillDryRun bool
	backfillBatch  int
	backfillPause  int
	backfillLimit  int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Resolve coordinates for records that are missing them",
	Long: `Walks the companies and jobs collections, in that order, and fills in
latitude/longitude plus provenance for every row still missing them.
Coordinates already present in a row's raw attributes are recovered without
calling any geocoder; the rest go through the provider chain with a pause
between calls. Safe to interrupt and re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		batch := backfillBatch
		if batch <= 0 {
			batch = cfg.Backfill.BatchSize
		}
		pause := backfillPause
		if pause < 0 {
			pause = cfg.Backfill.PauseMs
		}

		coord := backfill.New(buildResolver(pool), backfill.Options{
			BatchSize: batch,
			Pause:     time.Duration(pause) * time.Millisecond,
			Limit:     backfillLimit,
			DryRun:    backfillDryRun,
		})

		sources := []store.BackfillSource{
			store.NewCompanyStore(pool),
			store.NewJobStore(pool),
		}

		runID := uuid.NewString()
		zap.L().Info("backfill run",
			zap.String("run_id", runID),
			zap.Bool("dry_run", backfillDryRun),
		)

		started := time.Now()
		stats, runErr := coord.Run(ctx, sources)

		for _, src := range sources {
			s := stats[src.Name()]
			if s == nil {
				continue
			}
			if backfillDryRun {
				fmt.Printf("%s: %d processed, %d would update, %d unmatched, %d skipped, %d failed\n",
					src.Name(), s.Processed, s.WouldUpdate, s.Unmatched, s.Skipped, s.Failed)
				continue
			}
			fmt.Printf("%s: %d processed, %d from fields, %d geocoded, %d unmatched, %d skipped, %d failed\n",
				src.Name(), s.Processed, s.Extracted, s.Geocoded, s.Unmatched, s.Skipped, s.Failed)
		}
		fmt.Printf("done in %s\n", time.Since(started).Round(time.Millisecond))

		if runErr != nil {
			zap.L().Warn("backfill interrupted", zap.Error(runErr))
		}
		return nil
	},
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "report what would be updated without writing")
	backfillCmd.Flags().IntVar(&backfillBatch, "batch", 0, "rows fetched per page (default from config)")
	backfillCmd.Flags().IntVar(&backfillPause, "pause", -1, "milliseconds to wait after each geocoder call (default from config)")
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 0, "stop after this many rows per collection (0 = all)")
	rootCmd.AddCommand(backfillCmd)
}
