package service

import (
	"context"
	"fmt"
	"time"

	"score/internal/domain"
	"score/internal/logger"
	repositoryIface "score/internal/repository/iface"

	"github.com/robfig/cron/v3"
)

// StaleSplit is an open split older than the reconciliation threshold
type StaleSplit struct {
	Record  *domain.SplitRecord
	Missing []string
	Age     time.Duration
}

// JoinReconciler periodically reports splits that never joined. It never
// evicts or resumes anything.
type JoinReconciler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Sweep(ctx context.Context) ([]StaleSplit, error)
}

type joinReconciler struct {
	splits    repositoryIface.SplitRepository
	schedule  string
	threshold time.Duration
	now       func() time.Time
	logger    logger.Logger
	cron      *cron.Cron
}

// NewJoinReconciler takes a six-field cron schedule (with seconds)
func NewJoinReconciler(
	splits repositoryIface.SplitRepository,
	schedule string,
	threshold time.Duration,
	log logger.Logger,
) JoinReconciler {
	return &joinReconciler{
		splits:    splits,
		schedule:  schedule,
		threshold: threshold,
		now:       time.Now,
		logger:    log.With(logger.String("component", "join_reconciler")),
		cron:      cron.New(cron.WithSeconds()),
	}
}

func (r *joinReconciler) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := r.Sweep(sweepCtx); err != nil {
			r.logger.Error("join reconciliation failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add reconciliation cron: %w", err)
	}

	r.cron.Start()
	r.logger.Info("join reconciler started",
		logger.String("schedule", r.schedule),
		logger.Duration("threshold", r.threshold))
	return nil
}

func (r *joinReconciler) Stop(ctx context.Context) error {
	cronCtx := r.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.logger.Info("join reconciler stopped")
	return nil
}

func (r *joinReconciler) Sweep(ctx context.Context) ([]StaleSplit, error) {
	open, err := r.splits.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open splits: %w", err)
	}

	now := r.now()
	var stale []StaleSplit
	for _, rec := range open {
		age := now.Sub(time.UnixMilli(rec.UpdatedAt))
		if age < r.threshold {
			continue
		}

		var missing []string
		for _, id := range rec.Expected {
			if _, ok := rec.Finished[id]; !ok {
				missing = append(missing, id)
			}
		}
		stale = append(stale, StaleSplit{Record: rec, Missing: missing, Age: age})

		r.logger.Warn("split has not joined",
			logger.Int64("execution_id", rec.ExecutionID),
			logger.String("split_id", rec.SplitID),
			logger.String("flow_id", rec.FlowID),
			logger.Int("expected", len(rec.Expected)),
			logger.Int("finished", len(rec.Finished)),
			logger.Any("missing", missing),
			logger.Duration("age", age))
	}
	return stale, nil
}
