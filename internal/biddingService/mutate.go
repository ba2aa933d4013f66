package bidding

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/utils"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// errUnchanged lets an apply func finish without writing the auction back
var errUnchanged = errors.New("auction unchanged")

// applyFunc mutates a private copy of the auction and returns the events to emit
type applyFunc func(a *models.Auction, now time.Time) ([]notify.Event, error)

// keyedLocker serializes mutations per auction id inside this process
type keyedLocker struct {
	mu    sync.Mutex
	locks map[models.AuctionID]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[models.AuctionID]*keyedLock)}
}

func (k *keyedLocker) Lock(id models.AuctionID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

// mutate runs one read-apply-write cycle under the auction lock. A version
// conflict from another writer reloads the auction and applies again, up to
// ConflictRetries attempts. Events are dispatched after the lock is released.
func (s *BiddingService) mutate(ctx context.Context, auctionID models.AuctionID, apply applyFunc) (models.Auction, error) {
	unlock := s.locks.Lock(auctionID)

	var (
		saved  models.Auction
		events []notify.Event
	)
	operation := func() error {
		current, err := s.repo.GetAuction(ctx, auctionID)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("service: failed to get auction %s: %w", auctionID, err))
		}

		working := current.Clone()
		evs, err := apply(&working, s.clock.Now())
		if errors.Is(err, errUnchanged) {
			saved, events = current, evs
			return nil
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		out, err := s.repo.SaveAuction(ctx, working)
		if errors.Is(err, biddingerrors.ErrConflict) {
			return fmt.Errorf("service: auction %s: %w", auctionID, err)
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("service: failed to save auction %s: %w", auctionID, err))
		}
		saved, events = out, evs
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.ConflictBackoff), uint64(s.opts.ConflictRetries-1)),
		ctx,
	)
	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		utils.Warn("service: write conflict, retrying", map[string]any{
			"auction_id": string(auctionID),
			"error":      err.Error(),
			"wait":       wait.String(),
		})
	})
	unlock()

	if err != nil {
		return models.Auction{}, err
	}
	if len(events) > 0 {
		s.notifier.Notify(ctx, events...)
	}
	return saved, nil
}
