package perftests

import (
	"context"
	"fmt"
	"testing"
	"time"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/clock"
	model "auction-engine/internal/models"
	repository "auction-engine/internal/repository"
	"auction-engine/utils"
)

func init() {
	// per-bid info logs would dominate the measurements
	if err := utils.ConfigureLogger(utils.LogOptions{Level: "warn"}); err != nil {
		panic(err)
	}
}

// setupService creates a memory-backed service with numAuctions open auctions
// named auction_0..auction_{n-1}, all starting at 100.
func setupService(tb testing.TB, numAuctions int) (*repository.MemoryRepo, *bidding.BiddingService) {
	tb.Helper()
	repo := repository.NewMemoryRepo()
	opts := bidding.DefaultOptions()
	opts.ConflictBackoff = time.Millisecond
	svc := bidding.NewBiddingService(repo, nil, nil, clock.NewClock(), opts)

	now := time.Now().UTC()
	for i := 0; i < numAuctions; i++ {
		a := model.Auction{
			AuctionID:     model.AuctionID(fmt.Sprintf("auction_%d", i)),
			Title:         fmt.Sprintf("title_%d", i),
			Description:   "Load test auction",
			Seller:        "seller_perf",
			StartingPrice: utils.MustAmount("100"),
			CurrentBid:    utils.MustAmount("100"),
			EndTime:       now.Add(24 * time.Hour),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.CreateAuction(context.Background(), a); err != nil {
			tb.Fatalf("seed auction: %v", err)
		}
	}
	return repo, svc
}
