package bidding

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/ledger"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/utils"
	"context"
	"fmt"
	"time"
)

// BuyNow sells the item at the fixed price and ends the auction immediately.
// The forced end time keeps the resolver and new bids out for good.
func (s *BiddingService) BuyNow(ctx context.Context, auctionID models.AuctionID, buyerID models.UserID) (models.Auction, error) {
	if auctionID == "" || buyerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing auctionID or userID", biddingerrors.ErrInvalidBid)
	}
	if err := s.checkEligible(ctx, buyerID); err != nil {
		return models.Auction{}, err
	}

	saved, err := s.mutate(ctx, auctionID, func(a *models.Auction, now time.Time) ([]notify.Event, error) {
		if a.HasEnded(now) {
			return nil, fmt.Errorf("service: %w", biddingerrors.ErrAuctionEnded)
		}
		if !a.BuyNowEnabled || a.BuyNowPrice == nil {
			return nil, fmt.Errorf("service: %w - not offered for this auction", biddingerrors.ErrBuyNowUnavailable)
		}
		if a.Seller == buyerID {
			return nil, fmt.Errorf("service: %w - sellers cannot buy their own item", biddingerrors.ErrForbidden)
		}
		price := *a.BuyNowPrice
		if !price.GreaterThan(a.CurrentBid) {
			return nil, fmt.Errorf("service: %w - bidding already reached %s", biddingerrors.ErrBuyNowUnavailable, a.CurrentBid)
		}

		ledger.Append(a, models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: a.AuctionID,
			BidderID:  buyerID,
			Amount:    price,
			CreatedAt: now,
			IsBuyNow:  true,
		})
		a.SoldViaBuyNow = true
		a.BuyNowBuyer = buyerID
		a.EndTime = now
		a.UpdatedAt = now

		return []notify.Event{
			notify.WonEvent{
				Auction: a.AuctionID,
				Title:   a.Title,
				User:    buyerID,
				Amount:  price,
			},
			notify.BuyNowSoldEvent{
				Auction: a.AuctionID,
				Title:   a.Title,
				Seller:  a.Seller,
				Buyer:   buyerID,
				Amount:  price,
			},
		}, nil
	})
	if err != nil {
		return models.Auction{}, err
	}

	utils.Info("service: sold via buy now", map[string]any{
		"auction_id": string(auctionID),
		"buyer":      string(buyerID),
		"price":      saved.CurrentBid.String(),
	})
	return saved, nil
}
