package scheduler

import (
	"auction-engine/internal/clock"
	"auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/utils"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
)

const (
	DefaultInterval        = 5 * time.Minute
	DefaultPaymentDeadline = time.Hour
	DefaultWorkerPoolSize  = 4
)

// Transferer performs the guarded deadline transition for one auction
type Transferer interface {
	TransferIfOverdue(ctx context.Context, auctionID models.AuctionID) (models.TransferOutcome, error)
}

// Config holds the deadline sweeper settings
type Config struct {
	Interval        time.Duration // pause between sweep cycles
	PaymentDeadline time.Duration // how long after the end a winner may pay
	WorkerPoolSize  int           // auctions transferred concurrently
}

// SweepReport counts what one cycle did
type SweepReport struct {
	Candidates int `json:"candidates"`
	Reassigned int `json:"reassigned"`
	Failed     int `json:"payment_failed"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

var _ Sweeper = (*DeadlineSweeper)(nil)

// DeadlineSweeper periodically hands unpaid auctions to the runner-up
type DeadlineSweeper struct {
	config     Config
	store      repository.AuctionDB
	transferer Transferer
	clock      clock.Clock
	running    atomic.Bool
	stopOnce   sync.Once
	stopChan   chan struct{}
	stoppedCh  chan struct{}
}

// NewDeadlineSweeper creates a sweeper. Zero config values fall back to the defaults.
func NewDeadlineSweeper(config Config, store repository.AuctionDB, transferer Transferer, clk clock.Clock) *DeadlineSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.PaymentDeadline <= 0 {
		config.PaymentDeadline = DefaultPaymentDeadline
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if clk == nil {
		clk = clock.NewClock()
	}

	return &DeadlineSweeper{
		config:     config,
		store:      store,
		transferer: transferer,
		clock:      clk,
		stopChan:   make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *DeadlineSweeper) Name() string {
	return "payment-deadline-sweeper"
}

// Start sweeps immediately, then once per interval
func (s *DeadlineSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	utils.Info("scheduler: starting deadline sweeper", map[string]any{
		"interval":         s.config.Interval.String(),
		"payment_deadline": s.config.PaymentDeadline.String(),
		"worker_pool_size": s.config.WorkerPoolSize,
	})

	for {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			utils.Error("scheduler: sweep cycle failed", map[string]any{"error": err.Error()})
		}
		if !s.sleep(ctx, s.config.Interval) {
			utils.Info("scheduler: deadline sweeper stopped", nil)
			return nil
		}
	}
}

// Stop signals the main loop and waits for it to exit
func (s *DeadlineSweeper) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stopChan) })

	select {
	case <-s.stoppedCh:
		return nil
	case <-ctx.Done():
		utils.Warn("scheduler: stop interrupted by context", map[string]any{"error": ctx.Err().Error()})
		return ctx.Err()
	}
}

// SweepOnce runs one cycle: every candidate goes through the service's guarded
// transition, which re-checks eligibility under the auction lock.
func (s *DeadlineSweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	startTime := s.clock.Now()
	cutoff := startTime.Add(-s.config.PaymentDeadline)

	ids, err := s.store.ListAwaitingTransfer(ctx, cutoff)
	if err != nil {
		return SweepReport{}, fmt.Errorf("scheduler: failed to list overdue auctions: %w", err)
	}
	if len(ids) == 0 {
		return SweepReport{}, nil
	}

	var reassigned, failed, skipped, errs atomic.Int32

	pool := pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(len(ids)),
		pond.WithContext(ctx),
	)
	for _, id := range ids {
		pool.Submit(func() {
			outcome, err := s.transferer.TransferIfOverdue(ctx, id)
			if err != nil {
				errs.Add(1)
				utils.Error("scheduler: transfer failed", map[string]any{
					"auction_id": string(id),
					"error":      err.Error(),
				})
				return
			}
			switch outcome.Result {
			case models.TransferReassigned:
				reassigned.Add(1)
			case models.TransferFailed:
				failed.Add(1)
			default:
				skipped.Add(1)
			}
		})
	}
	pool.StopAndWait()

	report := SweepReport{
		Candidates: len(ids),
		Reassigned: int(reassigned.Load()),
		Failed:     int(failed.Load()),
		Skipped:    int(skipped.Load()),
		Errors:     int(errs.Load()),
	}
	utils.Info("scheduler: sweep cycle completed", map[string]any{
		"candidates": report.Candidates,
		"reassigned": report.Reassigned,
		"failed":     report.Failed,
		"skipped":    report.Skipped,
		"errors":     report.Errors,
		"duration":   s.clock.Since(startTime).String(),
	})
	return report, ctx.Err()
}

// sleep waits for the duration and reports false when interrupted
func (s *DeadlineSweeper) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-s.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
