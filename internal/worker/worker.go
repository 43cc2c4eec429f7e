// Package worker is the top-level supervisor: one aggregator for one
// funding currency, stopped as a unit.
package worker

import (
	"context"
	"sync"

	"tickflow/internal/account"
	"tickflow/pkg/logger"
)

type Worker struct {
	agg *account.Aggregator

	mu      sync.Mutex
	running bool
}

func New(agg *account.Aggregator) *Worker {
	return &Worker{agg: agg}
}

// Start initializes the account and launches its engines. Account-level
// failures are fatal to the run and returned to the caller.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	if err := w.agg.Init(ctx); err != nil {
		logger.Error("Account initialization failed.",
			logger.Pair("error", err.Error()))
		w.Stop()
		return err
	}

	if err := w.agg.Start(ctx); err != nil {
		logger.Error("Account start failed.",
			logger.Pair("error", err.Error()))
		w.Stop()
		return err
	}

	logger.Info("Worker started.", logger.Pair("engines", w.agg.Count()))
	return nil
}

// Stop shuts every engine down. Idempotent.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.agg.Stop()
	logger.Info("Worker stopped.")
}
