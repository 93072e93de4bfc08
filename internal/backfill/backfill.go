// Package backfill batch-resolves coordinates for persisted rows that are
// missing them. Processing is strictly sequential with explicit pacing:
// third-party geocoders rate-limit aggressively, so concurrency is
// deliberately absent.
package backfill

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/jobgeo/internal/extract"
	"github.com/hireloop/jobgeo/internal/model"
	"github.com/hireloop/jobgeo/internal/store"
	"github.com/hireloop/jobgeo/pkg/geocode"
)

// FieldsProvider tags rows whose coordinates were recovered from their own
// raw attributes rather than an external geocoder.
const FieldsProvider = "fields"

// Options tunes a backfill run.
type Options struct {
	BatchSize int           // rows fetched per page (default 50)
	Pause     time.Duration // sleep after each resolver call (default 500ms)
	Limit     int           // max rows processed per collection, 0 = all
	DryRun    bool          // report would-be updates, persist nothing
}

// Stats accumulates per-collection counters for operator output.
type Stats struct {
	Processed   int // rows examined
	Extracted   int // resolved locally from the row's own fields
	Geocoded    int // resolved by an external provider
	Unmatched   int // no provider could locate the address
	Skipped     int // no textual location at all
	Failed      int // resolver or persistence error; row left for a re-run
	WouldUpdate int // dry-run: updates that were reported but not written
}

// Coordinator drives the backfill over one or more entity collections.
type Coordinator struct {
	resolver geocode.Client
	opts     Options
	now      func() time.Time
}

// New creates a Coordinator. Zero option fields take documented defaults.
func New(resolver geocode.Client, opts Options) *Coordinator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Pause <= 0 {
		opts.Pause = 500 * time.Millisecond
	}
	return &Coordinator{resolver: resolver, opts: opts, now: time.Now}
}

// Run processes each collection to exhaustion, sequentially, in the order
// given, so operators can watch progress per collection. Re-running is
// idempotent: only rows still missing coordinates or provenance are touched.
// A cancelled context stops between rows and returns the stats so far.
func (c *Coordinator) Run(ctx context.Context, sources []store.BackfillSource) (map[string]*Stats, error) {
	stats := make(map[string]*Stats, len(sources))
	for _, src := range sources {
		s := &Stats{}
		stats[src.Name()] = s
		if err := c.runSource(ctx, src, s); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (c *Coordinator) runSource(ctx context.Context, src store.BackfillSource, stats *Stats) error {
	log := zap.L().With(zap.String("collection", src.Name()))

	total, err := src.CountMissingGeocode(ctx)
	if err != nil {
		return err
	}
	log.Info("backfill starting",
		zap.Int("missing", total),
		zap.Int("batch_size", c.opts.BatchSize),
		zap.Bool("dry_run", c.opts.DryRun),
	)

	// Keyset paging: rows that fail to resolve still match the missing
	// predicate, so advancing past the last seen id is what prevents the
	// run from refetching them forever. A later re-run picks them up again.
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := src.ListMissingGeocode(ctx, afterID, c.opts.BatchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}
		for _, rec := range records {
			if c.opts.Limit > 0 && stats.Processed >= c.opts.Limit {
				log.Info("limit reached", zap.Int("limit", c.opts.Limit))
				return nil
			}
			afterID = rec.ID
			if err := ctx.Err(); err != nil {
				return err
			}
			c.processRecord(ctx, src, rec, stats, log)
		}
		log.Info("batch complete", zap.Int("processed", stats.Processed), zap.Int("missing", total))
	}

	log.Info("backfill finished",
		zap.Int("processed", stats.Processed),
		zap.Int("extracted", stats.Extracted),
		zap.Int("geocoded", stats.Geocoded),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return nil
}

// processRecord resolves and persists one row. Failures are logged and
// counted, never propagated: one bad row must not abort the batch.
func (c *Coordinator) processRecord(ctx context.Context, src store.BackfillSource, rec store.Record, stats *Stats, log *zap.Logger) {
	stats.Processed++

	// Local extraction first: a row whose raw fields already carry
	// coordinates must not consume a provider call.
	if point, ok := c.extractLocal(rec); ok {
		stats.Extracted++
		c.persist(ctx, src, rec, store.GeocodeUpdate{
			Point:    point,
			Provider: FieldsProvider,
			At:       c.now(),
		}, stats, log)
		return
	}

	if strings.TrimSpace(rec.Location) == "" {
		stats.Skipped++
		return
	}

	result, err := c.resolver.Geocode(ctx, rec.Location)
	c.pause(ctx)
	if err != nil {
		stats.Failed++
		log.Warn("backfill: resolution failed",
			zap.String("id", rec.ID),
			zap.Error(err),
		)
		return
	}
	if !result.Matched {
		stats.Unmatched++
		log.Debug("backfill: address not locatable", zap.String("id", rec.ID))
		return
	}

	point, err := model.NewGeoPoint(result.Latitude, result.Longitude)
	if err != nil {
		stats.Failed++
		log.Warn("backfill: provider returned invalid coordinates",
			zap.String("id", rec.ID),
			zap.Error(err),
		)
		return
	}

	stats.Geocoded++
	c.persist(ctx, src, rec, store.GeocodeUpdate{
		Point:    point,
		Provider: result.Provider,
		At:       c.now(),
		Raw:      result.Raw,
	}, stats, log)
}

// extractLocal runs the zero-network extractor over the row's raw attributes
// and free-text location.
func (c *Coordinator) extractLocal(rec store.Record) (model.GeoPoint, bool) {
	if point, ok := extract.FromDocument(rec.Attrs); ok {
		return point, true
	}
	return extract.FromText(rec.Location)
}

func (c *Coordinator) persist(ctx context.Context, src store.BackfillSource, rec store.Record, upd store.GeocodeUpdate, stats *Stats, log *zap.Logger) {
	if c.opts.DryRun {
		stats.WouldUpdate++
		log.Info("backfill: would update",
			zap.String("id", rec.ID),
			zap.Float64("latitude", upd.Point.Latitude),
			zap.Float64("longitude", upd.Point.Longitude),
			zap.String("provider", upd.Provider),
		)
		return
	}
	if err := src.UpdateGeocode(ctx, rec.ID, upd); err != nil {
		stats.Failed++
		log.Warn("backfill: persist failed",
			zap.String("id", rec.ID),
			zap.Error(err),
		)
	}
}

// pause sleeps the configured inter-call delay, or returns early on cancel.
func (c *Coordinator) pause(ctx context.Context) {
	timer := time.NewTimer(c.opts.Pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
