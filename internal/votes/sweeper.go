package votes

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// SweepReport summarizes one sweep pass.
type SweepReport struct {
	Drifted  int `json:"drifted"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Sweeper periodically finds entities whose counters drifted from the ledger
// (a crash between the ledger write and the counter write) and reconciles them.
type Sweeper struct {
	Store       CounterStore
	Reconciler  Reconciler
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	Logger      *slog.Logger
}

// SweepOnce repairs up to BatchSize drifted entities.
func (s Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	logger := ResolveLogger(s.Logger)
	batch := s.BatchSize
	if batch <= 0 {
		batch = 500
	}
	drifted, err := s.Store.ListDrifted(ctx, batch)
	if err != nil {
		return SweepReport{}, err
	}

	var repaired, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for _, ref := range drifted {
		g.Go(func() error {
			if _, err := s.Reconciler.Reconcile(gctx, ref); err != nil {
				failed.Add(1)
				return nil
			}
			repaired.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report := SweepReport{
		Drifted:  len(drifted),
		Repaired: int(repaired.Load()),
		Failed:   int(failed.Load()),
	}
	if report.Drifted > 0 {
		logger.Info("counter sweep finished",
			"event", "votes_sweep_finished",
			"module", logModule,
			"layer", "sweeper",
			"drifted", report.Drifted,
			"repaired", report.Repaired,
			"failed", report.Failed,
		)
	}
	return report, ctx.Err()
}

// Run sweeps every Interval until ctx is cancelled.
func (s Sweeper) Run(ctx context.Context) {
	logger := ResolveLogger(s.Logger)
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Error("counter sweep failed",
					"event", "votes_sweep_failed",
					"module", logModule,
					"layer", "sweeper",
					"error", err.Error(),
				)
			}
		}
	}
}
