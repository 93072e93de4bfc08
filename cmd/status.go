package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hireloop/jobgeo/internal/store"
)

// geocodeCounter is the slice of a store the status command needs.
type geocodeCounter interface {
	Name() string
	Count(ctx context.Context) (int, error)
	CountMissingGeocode(ctx context.Context) (int, error)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show geocoding coverage per collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		counters := []geocodeCounter{
			store.NewCompanyStore(pool),
			store.NewJobStore(pool),
		}

		for _, c := range counters {
			total, err := c.Count(ctx)
			if err != nil {
				return err
			}
			missing, err := c.CountMissingGeocode(ctx)
			if err != nil {
				return err
			}
			pct := 100.0
			if total > 0 {
				pct = float64(total-missing) / float64(total) * 100
			}
			fmt.Printf("%-10s %6d total, %6d geocoded, %6d missing (%.1f%%)\n",
				c.Name(), total, total-missing, missing, pct)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
