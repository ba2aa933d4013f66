package bidding

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/utils"
	"context"
	"fmt"
	"strings"
	"time"
)

// CreateAuction validates a new listing and stores it with currentBid at the starting price
func (s *BiddingService) CreateAuction(ctx context.Context, in models.NewAuction) (models.Auction, error) {
	now := s.clock.Now()

	if in.Seller == "" || strings.TrimSpace(in.Title) == "" {
		return models.Auction{}, fmt.Errorf("service: %w - seller and title are required", biddingerrors.ErrInvalidAuction)
	}
	if err := s.validateAmount(in.StartingPrice); err != nil {
		return models.Auction{}, err
	}
	if !in.EndTime.After(now) {
		return models.Auction{}, fmt.Errorf("service: %w - end time must be in the future", biddingerrors.ErrInvalidAuction)
	}
	if in.BuyNowEnabled {
		if in.BuyNowPrice == nil || !in.BuyNowPrice.GreaterThan(in.StartingPrice) {
			return models.Auction{}, fmt.Errorf("service: %w - buy now price must exceed the starting price", biddingerrors.ErrInvalidAuction)
		}
		if err := s.validateAmount(*in.BuyNowPrice); err != nil {
			return models.Auction{}, err
		}
	}
	if err := s.checkEligible(ctx, in.Seller); err != nil {
		return models.Auction{}, err
	}

	auction := models.Auction{
		AuctionID:     models.AuctionID(utils.GenerateID()),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Category:      in.Category,
		Seller:        in.Seller,
		StartingPrice: in.StartingPrice,
		CurrentBid:    in.StartingPrice,
		EndTime:       in.EndTime.UTC(),
		BuyNowEnabled: in.BuyNowEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.BuyNowEnabled {
		price := *in.BuyNowPrice
		auction.BuyNowPrice = &price
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("service: auction created", map[string]any{
		"auction_id": string(auction.AuctionID),
		"seller":     string(auction.Seller),
		"end_time":   auction.EndTime.Format(time.RFC3339),
	})
	return auction, nil
}

// UpdateAuction lets the seller edit a listing until the first bid arrives
func (s *BiddingService) UpdateAuction(ctx context.Context, auctionID models.AuctionID, sellerID models.UserID, patch models.AuctionPatch) (models.Auction, error) {
	if patch.StartingPrice != nil {
		if err := s.validateAmount(*patch.StartingPrice); err != nil {
			return models.Auction{}, err
		}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Auction{}, fmt.Errorf("service: %w - title cannot be empty", biddingerrors.ErrInvalidAuction)
	}

	return s.mutate(ctx, auctionID, func(a *models.Auction, now time.Time) ([]notify.Event, error) {
		if a.Seller != sellerID {
			return nil, fmt.Errorf("service: %w - only the seller can edit the auction", biddingerrors.ErrForbidden)
		}
		if a.HasEnded(now) {
			return nil, fmt.Errorf("service: %w", biddingerrors.ErrAuctionEnded)
		}
		if len(a.Bids) > 0 {
			return nil, fmt.Errorf("service: %w - auction already has bids", biddingerrors.ErrForbidden)
		}

		if patch.Title != nil {
			a.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			a.Description = *patch.Description
		}
		if patch.Category != nil {
			a.Category = *patch.Category
		}
		if patch.StartingPrice != nil {
			if a.BuyNowPrice != nil && !a.BuyNowPrice.GreaterThan(*patch.StartingPrice) {
				return nil, fmt.Errorf("service: %w - starting price must stay below the buy now price", biddingerrors.ErrInvalidAuction)
			}
			a.StartingPrice = *patch.StartingPrice
			a.CurrentBid = *patch.StartingPrice
		}
		if patch.EndTime != nil {
			if !patch.EndTime.After(now) {
				return nil, fmt.Errorf("service: %w - end time must be in the future", biddingerrors.ErrInvalidAuction)
			}
			a.EndTime = patch.EndTime.UTC()
		}
		a.UpdatedAt = now
		return nil, nil
	})
}

// DeleteAuction removes a listing. Only the seller may delete it and only while it has no bids.
func (s *BiddingService) DeleteAuction(ctx context.Context, auctionID models.AuctionID, sellerID models.UserID) error {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.Seller != sellerID {
		return fmt.Errorf("service: %w - only the seller can delete the auction", biddingerrors.ErrForbidden)
	}
	if len(a.Bids) > 0 {
		return fmt.Errorf("service: %w - auction already has bids", biddingerrors.ErrForbidden)
	}

	if err := s.repo.DeleteAuction(ctx, auctionID, a.Version); err != nil {
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}

	utils.Info("service: auction deleted", map[string]any{
		"auction_id": string(auctionID),
		"seller":     string(sellerID),
	})
	return nil
}
