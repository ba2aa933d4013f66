// Package ledger answers "what is the current price and who holds it" for an auction's
// append-only list of bids.
package ledger

import (
	"sort"

	"auction-engine/internal/models"
)

// Append adds bid to the end of the ledger and makes it the current price.
// No validation happens here.
func Append(a *models.Auction, bid models.Bid) {
	a.Bids = append(a.Bids, bid)
	a.CurrentBid = bid.Amount
	a.Winner = bid.BidderID
}

// Ranked returns a copy of bids ordered by amount descending. Equal amounts keep the
// earliest bid first, falling back to ledger order for identical timestamps.
func Ranked(bids []models.Bid) []models.Bid {
	ranked := append([]models.Bid(nil), bids...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].Amount.Equal(ranked[j].Amount) {
			return ranked[i].Amount.GreaterThan(ranked[j].Amount)
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})
	return ranked
}

// Highest returns the top ranked bid
func Highest(bids []models.Bid) (models.Bid, bool) {
	if len(bids) == 0 {
		return models.Bid{}, false
	}
	return Ranked(bids)[0], true
}

// SecondHighest returns the second ranked bid regardless of who placed it
func SecondHighest(bids []models.Bid) (models.Bid, bool) {
	if len(bids) < 2 {
		return models.Bid{}, false
	}
	return Ranked(bids)[1], true
}

// RunnerUp returns the highest bid placed by anyone other than exclude.
func RunnerUp(bids []models.Bid, exclude models.UserID) (models.Bid, bool) {
	for _, b := range Ranked(bids) {
		if b.BidderID != exclude {
			return b, true
		}
	}
	return models.Bid{}, false
}
