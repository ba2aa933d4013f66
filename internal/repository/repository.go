package repository

import (
	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionDB defines the auction storage interface for the bidding engine.
// SaveAuction is a conditional write: it fails with ErrConflict when the stored
// version differs from the one the caller read.
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID model.AuctionID) (model.Auction, error)
	SaveAuction(ctx context.Context, auction model.Auction) (model.Auction, error)
	ListAuctions(ctx context.Context) ([]model.Auction, error)
	ListAwaitingTransfer(ctx context.Context, endedBefore time.Time) ([]model.AuctionID, error)
	GetAuctionsByBidder(ctx context.Context, userID model.UserID) ([]model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID model.AuctionID, version int64) error
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu          sync.RWMutex
	auctions    map[model.AuctionID]model.Auction  // key: auctionID -> value: auction
	userAuction map[model.UserID][]model.AuctionID // key: userID -> value: list of auctionIDs user has bid on
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:    make(map[model.AuctionID]model.Auction),
		userAuction: make(map[model.UserID][]model.AuctionID),
	}
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrConflict)
	}
	r.auctions[auction.AuctionID] = auction.Clone()
	r.indexBidders(auction)
	return nil
}

// GetAuction returns a copy of the stored auction
func (r *MemoryRepo) GetAuction(ctx context.Context, auctionID model.AuctionID) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return a.Clone(), nil
}

// SaveAuction replaces the stored auction if its version still matches
func (r *MemoryRepo) SaveAuction(ctx context.Context, auction model.Auction) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.auctions[auction.AuctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("save auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	if stored.Version != auction.Version {
		return model.Auction{}, fmt.Errorf("save auction %s at version %d (stored %d): %w",
			auction.AuctionID, auction.Version, stored.Version, biddingerrors.ErrConflict)
	}

	saved := auction.Clone()
	saved.Version++
	r.auctions[saved.AuctionID] = saved
	r.indexBidders(saved)
	return saved.Clone(), nil
}

// DeleteAuction removes the auction if its version still matches
func (r *MemoryRepo) DeleteAuction(ctx context.Context, auctionID model.AuctionID, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if stored.Version != version {
		return fmt.Errorf("delete auction %s at version %d (stored %d): %w",
			auctionID, version, stored.Version, biddingerrors.ErrConflict)
	}

	delete(r.auctions, auctionID)
	for userID, ids := range r.userAuction {
		kept := ids[:0]
		for _, id := range ids {
			if id != auctionID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(r.userAuction, userID)
			continue
		}
		r.userAuction[userID] = kept
	}
	return nil
}

// ListAuctions returns all auctions ordered by end time
func (r *MemoryRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		list = append(list, a.Clone())
	}
	sortByEndTime(list)
	return list, nil
}

// ListAwaitingTransfer returns unpaid, unlatched auctions with a winner that ended before endedBefore
func (r *MemoryRepo) ListAwaitingTransfer(ctx context.Context, endedBefore time.Time) ([]model.AuctionID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []model.Auction
	for _, a := range r.auctions {
		if a.EndTime.Before(endedBefore) && !a.IsPaid && a.HasWinner() && !a.TransferredToSecondBidder {
			due = append(due, a)
		}
	}
	sortByEndTime(due)

	ids := make([]model.AuctionID, 0, len(due))
	for _, a := range due {
		ids = append(ids, a.AuctionID)
	}
	return ids, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByBidder(ctx context.Context, userID model.UserID) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionIDs, ok := r.userAuction[userID]
	if !ok || len(auctionIDs) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}

	auctions := make([]model.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if a, exists := r.auctions[id]; exists {
			auctions = append(auctions, a.Clone())
		}
	}
	return auctions, nil
}

// indexBidders must be called with the write lock held
func (r *MemoryRepo) indexBidders(auction model.Auction) {
	for _, bid := range auction.Bids {
		if containsAuction(r.userAuction[bid.BidderID], auction.AuctionID) {
			continue
		}
		r.userAuction[bid.BidderID] = append(r.userAuction[bid.BidderID], auction.AuctionID)
	}
}

func containsAuction(ids []model.AuctionID, id model.AuctionID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func sortByEndTime(list []model.Auction) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].EndTime.Equal(list[j].EndTime) {
			return list[i].AuctionID < list[j].AuctionID
		}
		return list[i].EndTime.Before(list[j].EndTime)
	})
}
