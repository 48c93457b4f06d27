// Package feed retrieves and normalizes the live disaster feed. A Fetcher
// owns its FetchState exclusively; consumers only ever see snapshots.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/discentra/discentra/internal/config"
	"github.com/discentra/discentra/internal/models"
	"github.com/discentra/discentra/internal/observability"
)

// Fetcher drives the refresh cycle:
//
//	Idle → Fetching → Success → Idle
//	                → Failure → retry after a fixed delay, up to MaxRetries,
//	                  then Idle with the error surfaced in FetchState.
//
// A refresh already in progress is never started again; concurrent requests
// are ignored and receive the current snapshot.
type Fetcher struct {
	source  Source
	cfg     config.FeedConfig
	clock   clockwork.Clock
	bc      *Broadcaster
	metrics *observability.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	state    models.FetchState
	fetching bool
}

func NewFetcher(source Source, cfg config.FeedConfig, clock clockwork.Clock, bc *Broadcaster, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source:  source,
		cfg:     cfg,
		clock:   clock,
		bc:      bc,
		metrics: metrics,
		logger:  logger,
	}
}

// State returns a snapshot of the current fetch state.
func (f *Fetcher) State() models.FetchState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Refresh runs one manual refresh cycle, including its automatic retries,
// and returns the resulting state. Manual refreshes reset the retry counter,
// re-arming auto-retry after a previous cycle exhausted it. If a refresh is
// already in flight the call is ignored and the current snapshot returned.
func (f *Fetcher) Refresh(ctx context.Context) models.FetchState {
	return f.refresh(ctx, true)
}

// Run performs an initial refresh and then one refresh per poll interval
// until the context is cancelled.
func (f *Fetcher) Run(ctx context.Context) {
	f.logger.Info("feed fetcher starting", "interval", f.cfg.PollInterval)

	ticker := f.clock.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	f.refresh(ctx, false)

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("feed fetcher shutting down")
			return
		case <-ticker.Chan():
			f.refresh(ctx, false)
		}
	}
}

func (f *Fetcher) refresh(ctx context.Context, manual bool) models.FetchState {
	f.mu.Lock()
	if f.fetching {
		st := f.snapshotLocked()
		f.mu.Unlock()
		return st
	}
	f.fetching = true
	if manual {
		f.state.RetryCount = 0
	}
	f.mu.Unlock()

	f.cycle(ctx)

	f.mu.Lock()
	f.fetching = false
	st := f.snapshotLocked()
	f.mu.Unlock()
	return st
}

// cycle fetches until success or until the retry budget is spent. Retries
// use a fixed delay; the counter only resets on success or manual refresh.
func (f *Fetcher) cycle(ctx context.Context) {
	for {
		records, err := f.source.Fetch(ctx)
		if err == nil {
			f.mu.Lock()
			f.state.Records = records // whole list replaced, never merged
			f.state.LastUpdated = f.clock.Now()
			f.state.LastError = ""
			f.state.RetryCount = 0
			f.mu.Unlock()

			f.metrics.FeedRefreshes.WithLabelValues("success").Inc()
			f.metrics.FeedRecords.Set(float64(len(records)))
			f.logger.Info("feed refreshed", "records", len(records))

			if f.bc != nil {
				f.bc.Publish(records)
			}
			return
		}

		f.metrics.FeedRefreshes.WithLabelValues("failure").Inc()
		f.logger.Error("feed refresh failed", "error", err)

		f.mu.Lock()
		f.state.LastError = err.Error()
		if f.state.RetryCount >= f.cfg.MaxRetries {
			f.mu.Unlock()
			f.logger.Warn("feed retries exhausted", "retries", f.cfg.MaxRetries)
			return
		}
		f.state.RetryCount++
		attempt := f.state.RetryCount
		f.mu.Unlock()

		f.metrics.FeedRetries.Inc()
		f.logger.Info("feed retry scheduled", "attempt", attempt, "delay", f.cfg.RetryDelay)

		select {
		case <-ctx.Done():
			return
		case <-f.clock.After(f.cfg.RetryDelay):
		}
	}
}

func (f *Fetcher) snapshotLocked() models.FetchState {
	st := f.state
	st.Records = make([]models.DisasterRecord, len(f.state.Records))
	copy(st.Records, f.state.Records)
	return st
}
