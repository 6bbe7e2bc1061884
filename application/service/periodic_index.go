package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/helixml/openflights/domain/flight"
)

// PeriodicIndex runs the Indexer over every kind on a timer, picking up
// entities loaded since the previous pass.
type PeriodicIndex struct {
	indexer  *Indexer
	opts     []IndexOption
	logger   *slog.Logger
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPeriodicIndex creates a new PeriodicIndex. A non-positive interval
// disables it.
func NewPeriodicIndex(indexer *Indexer, interval time.Duration, logger *slog.Logger, opts ...IndexOption) *PeriodicIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &PeriodicIndex{
		indexer:  indexer,
		opts:     opts,
		logger:   logger,
		interval: interval,
	}
}

// Start begins periodic indexing in a background goroutine.
// If disabled, this is a no-op.
func (p *PeriodicIndex) Start(ctx context.Context) {
	if p.interval <= 0 || p.indexer == nil {
		p.logger.Info("periodic indexing disabled")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Go(func() {
		p.run(ctx)
	})

	p.logger.Info("periodic indexing started", slog.Duration("interval", p.interval))
}

// Stop cancels the background goroutine and waits for it to finish.
func (p *PeriodicIndex) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.logger.Info("periodic indexing stopped")
}

func (p *PeriodicIndex) run(ctx context.Context) {
	// Index immediately on startup
	p.index(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.index(ctx)
		}
	}
}

func (p *PeriodicIndex) index(ctx context.Context) {
	results, err := p.indexer.RunAll(ctx, flight.Kinds(), p.opts...)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("periodic indexing failed", slog.String("error", err.Error()))
		return
	}
	total := 0
	for _, r := range results {
		total += r.Indexed
	}
	p.logger.Debug("periodic indexing pass", slog.Int("indexed", total))
}
