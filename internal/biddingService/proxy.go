package bidding

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/utils"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SetProxyBid creates or raises the caller's standing ceiling and lets the
// resolver react in the same critical section
func (s *BiddingService) SetProxyBid(ctx context.Context, auctionID models.AuctionID, userID models.UserID, maxAmount decimal.Decimal) (models.ProxyBidOutcome, error) {
	if auctionID == "" || userID == "" {
		return models.ProxyBidOutcome{}, fmt.Errorf("service: %w - missing auctionID or userID", biddingerrors.ErrInvalidBid)
	}
	if err := s.validateAmount(maxAmount); err != nil {
		return models.ProxyBidOutcome{}, err
	}
	if err := s.checkEligible(ctx, userID); err != nil {
		return models.ProxyBidOutcome{}, err
	}

	var outcome models.ProxyBidOutcome
	saved, err := s.mutate(ctx, auctionID, func(a *models.Auction, now time.Time) ([]notify.Event, error) {
		if a.HasEnded(now) {
			return nil, fmt.Errorf("service: %w", biddingerrors.ErrAuctionEnded)
		}
		if a.Seller == userID {
			return nil, fmt.Errorf("service: %w - sellers cannot bid on their own auction", biddingerrors.ErrForbidden)
		}
		if !maxAmount.GreaterThan(a.CurrentBid) {
			return nil, fmt.Errorf("service: %w - maximum must exceed the current bid %s", biddingerrors.ErrBidTooLow, a.CurrentBid)
		}

		opening := decimal.Min(maxAmount, a.CurrentBid.Add(s.resolver.Increment()))
		idx := a.ActiveProxyBid(userID)
		if idx >= 0 {
			a.AutoBids[idx].MaxAmount = maxAmount
			a.AutoBids[idx].CurrentProxyBid = opening
			a.AutoBids[idx].UpdatedAt = now
		} else {
			a.AutoBids = append(a.AutoBids, models.ProxyBid{
				UserID:          userID,
				MaxAmount:       maxAmount,
				CurrentProxyBid: opening,
				IsActive:        true,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			idx = len(a.AutoBids) - 1
		}

		outcome.AutoBids = s.resolver.Resolve(a, now)
		outcome.ProxyBid = a.AutoBids[idx]
		a.UpdatedAt = now
		return nil, nil
	})
	if err != nil {
		return models.ProxyBidOutcome{}, err
	}

	outcome.Auction = saved
	utils.Info("service: auto-bid set", map[string]any{
		"auction_id":  string(auctionID),
		"user_id":     string(userID),
		"max_amount":  maxAmount.String(),
		"current_bid": saved.CurrentBid.String(),
		"winner":      string(saved.Winner),
		"auto_bids":   len(outcome.AutoBids),
	})
	return outcome, nil
}

// GetProxyBid returns the caller's active proxy bid
func (s *BiddingService) GetProxyBid(ctx context.Context, auctionID models.AuctionID, userID models.UserID) (models.ProxyBid, error) {
	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return models.ProxyBid{}, err
	}

	idx := a.ActiveProxyBid(userID)
	if idx < 0 {
		return models.ProxyBid{}, fmt.Errorf("service: auction %s user %s: %w", auctionID, userID, biddingerrors.ErrNoActiveProxyBid)
	}
	return a.AutoBids[idx], nil
}

// CancelProxyBid deactivates the caller's proxy bid. The entry stays in the history.
func (s *BiddingService) CancelProxyBid(ctx context.Context, auctionID models.AuctionID, userID models.UserID) (models.ProxyBid, error) {
	var cancelled models.ProxyBid
	_, err := s.mutate(ctx, auctionID, func(a *models.Auction, now time.Time) ([]notify.Event, error) {
		idx := a.ActiveProxyBid(userID)
		if idx < 0 {
			return nil, fmt.Errorf("service: auction %s user %s: %w", auctionID, userID, biddingerrors.ErrNoActiveProxyBid)
		}
		a.AutoBids[idx].IsActive = false
		a.AutoBids[idx].UpdatedAt = now
		a.UpdatedAt = now
		cancelled = a.AutoBids[idx]
		return nil, nil
	})
	if err != nil {
		return models.ProxyBid{}, err
	}

	utils.Info("service: auto-bid cancelled", map[string]any{
		"auction_id": string(auctionID),
		"user_id":    string(userID),
	})
	return cancelled, nil
}
