package proximity

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/jobgeo/internal/extract"
	"github.com/hireloop/jobgeo/internal/model"
	"github.com/hireloop/jobgeo/pkg/geocode"
)

const (
	// defaultLazyCap bounds resolver calls per run so an open view never
	// drains a provider quota.
	defaultLazyCap = 30

	// defaultLazyInterval spaces consecutive resolver calls.
	defaultLazyInterval = 700 * time.Millisecond
)

// LazyResolver fills the session cache for candidates that arrived without
// coordinates, one provider call at a time, while a proximity view is open.
// Cancellation stops further calls; an in-flight call completes and its
// result still lands in the cache.
type LazyResolver struct {
	client   geocode.Client
	cache    *Cache
	interval time.Duration
	maxCalls int

	mu       sync.Mutex
	inflight map[string]bool
}

// LazyOption configures the LazyResolver.
type LazyOption func(*LazyResolver)

// WithLazyInterval overrides the inter-call delay.
func WithLazyInterval(d time.Duration) LazyOption {
	return func(l *LazyResolver) {
		if d >= 0 {
			l.interval = d
		}
	}
}

// WithLazyCap overrides the per-run call cap.
func WithLazyCap(n int) LazyOption {
	return func(l *LazyResolver) {
		if n > 0 {
			l.maxCalls = n
		}
	}
}

// NewLazyResolver creates a LazyResolver writing into the given cache.
func NewLazyResolver(client geocode.Client, cache *Cache, opts ...LazyOption) *LazyResolver {
	l := &LazyResolver{
		client:   client,
		cache:    cache,
		interval: defaultLazyInterval,
		maxCalls: defaultLazyCap,
		inflight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run resolves pending candidates sequentially until the queue, the call
// cap, or the context is exhausted. Returns the number resolved. onResolved,
// if non-nil, fires after each cache write so the caller can re-evaluate its
// match set.
func (l *LazyResolver) Run(ctx context.Context, pending []extract.Entity, onResolved func(id string)) int {
	resolved := 0
	calls := 0
	for _, cand := range pending {
		if ctx.Err() != nil || calls >= l.maxCalls {
			break
		}
		id := cand.EntityID()
		if l.cache.Has(id) || !l.claim(id) {
			continue
		}

		address := strings.TrimSpace(cand.LocationText())
		if address == "" {
			l.release(id)
			continue
		}

		calls++
		// Cancellation is checked between candidates only. The provider
		// call itself runs detached so a stop never aborts it mid-flight
		// and its result still lands in the cache.
		result, err := l.client.Geocode(context.WithoutCancel(ctx), address)
		l.release(id)
		if err != nil {
			zap.L().Warn("lazy geocode failed", zap.String("id", id), zap.Error(err))
		} else if result.Matched {
			if point, perr := model.NewGeoPoint(result.Latitude, result.Longitude); perr == nil {
				l.cache.Put(id, point)
				resolved++
				if onResolved != nil {
					onResolved(id)
				}
			}
		}

		if !l.sleep(ctx) {
			break
		}
	}
	return resolved
}

// Start runs the resolver in the background and returns a stop function.
// Stopping prevents further provider calls; the in-flight one, if any,
// completes and caches normally.
func (l *LazyResolver) Start(ctx context.Context, pending []extract.Entity, onResolved func(id string)) (stop func()) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(runCtx, pending, onResolved)
	}()
	return func() {
		cancel()
		<-done
	}
}

// claim marks an id in flight; false means another run already owns it.
func (l *LazyResolver) claim(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight[id] {
		return false
	}
	l.inflight[id] = true
	return true
}

func (l *LazyResolver) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, id)
}

// sleep waits the inter-call interval; false means the context was cancelled.
func (l *LazyResolver) sleep(ctx context.Context) bool {
	if l.interval == 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
