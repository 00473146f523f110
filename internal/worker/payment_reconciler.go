package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	"github.com/campuseats/canteen/internal/domain/model"
)

// CanteenFacade exposes the subset of application functionality required by the worker.
type CanteenFacade interface {
	StalePendingPayments(ctx context.Context, olderThan time.Duration, limit int) ([]model.Payment, error)
	ConfirmPayment(ctx context.Context, sessionID string, paymentID int64) (model.PaymentStatus, error)
}

// PaymentReconciler periodically pulls checkout session state for pending
// payments whose webhook never arrived and drives them to a terminal status.
type PaymentReconciler struct {
	facade       CanteenFacade
	pollInterval time.Duration
	staleAge     time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.Payment
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewPaymentReconciler constructs the reconciliation worker pool.
func NewPaymentReconciler(facade CanteenFacade, pollInterval, staleAge time.Duration, batchSize, workers int, logger *slog.Logger) *PaymentReconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &PaymentReconciler{
		facade:       facade,
		pollInterval: pollInterval,
		staleAge:     staleAge,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.Payment, batchSize*workers),
	}
}

// Start launches background processing.
func (p *PaymentReconciler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *PaymentReconciler) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PaymentReconciler) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *PaymentReconciler) fetchAndDispatch(ctx context.Context) {
	payments, err := p.facade.StalePendingPayments(ctx, p.staleAge, p.batchSize)
	if err != nil {
		p.logger.Error("fetch stale pending payments failed", slog.String("error", err.Error()))
		return
	}
	for _, payment := range payments {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- payment:
		}
	}
}

func (p *PaymentReconciler) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payment, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handlePayment(ctx, payment)
		}
	}
}

func (p *PaymentReconciler) handlePayment(ctx context.Context, payment model.Payment) {
	status, err := p.facade.ConfirmPayment(ctx, payment.SessionID, payment.ID)
	if err != nil {
		if errors.Is(err, stripe.ErrSessionNotFound) {
			p.logger.Warn("checkout session gone, payment left pending",
				slog.Int64("payment_id", payment.ID),
				slog.String("session_id", payment.SessionID))
			return
		}
		p.logger.Error("confirm payment failed",
			slog.Int64("payment_id", payment.ID),
			slog.String("error", err.Error()))
		return
	}

	if status != model.PaymentStatusPending {
		p.logger.Info("payment reconciled",
			slog.Int64("payment_id", payment.ID),
			slog.String("status", string(status)))
	}
}
