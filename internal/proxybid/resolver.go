package proxybid

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"auction-engine/internal/ledger"
	"auction-engine/internal/models"
)

const (
	// DefaultMaxIterations bounds one resolution run
	DefaultMaxIterations = 50
)

// DefaultIncrement is the minimum step a proxy raises the price by
var DefaultIncrement = decimal.NewFromInt(1)

// Resolver synthesizes bids on behalf of proxy bidders until no proxy can
// profitably outbid the current leader.
type Resolver struct {
	maxIterations int
	increment     decimal.Decimal
	newID         func() string
}

// NewResolver creates a Resolver. Non-positive arguments fall back to the defaults.
func NewResolver(maxIterations int, increment decimal.Decimal) *Resolver {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if !increment.IsPositive() {
		increment = DefaultIncrement
	}
	return &Resolver{
		maxIterations: maxIterations,
		increment:     increment,
		newID:         uuid.NewString,
	}
}

// Increment returns the configured minimum proxy step
func (r *Resolver) Increment() decimal.Decimal {
	return r.increment
}

// Resolve appends synthetic bids to the auction's ledger and returns them in order.
// The auction is mutated in place; callers persist it once as a whole.
func (r *Resolver) Resolve(a *models.Auction, now time.Time) []models.Bid {
	var placed []models.Bid

	for i := 0; i < r.maxIterations; i++ {
		active := activeProxies(a)
		if len(active) == 0 {
			break
		}

		top := &a.AutoBids[active[0]]
		var next decimal.Decimal
		if len(active) > 1 {
			// bid just enough to beat the runner-up's ceiling
			second := a.AutoBids[active[1]]
			next = decimal.Min(second.MaxAmount.Add(r.increment), top.MaxAmount)
		} else {
			if top.UserID == a.Winner {
				break
			}
			next = a.CurrentBid.Add(r.increment)
		}

		if next.GreaterThan(top.MaxAmount) {
			next = top.MaxAmount
		}
		if !next.GreaterThan(a.CurrentBid) {
			break
		}

		bid := models.Bid{
			BidID:     r.newID(),
			AuctionID: a.AuctionID,
			BidderID:  top.UserID,
			Amount:    next,
			CreatedAt: now,
			IsAutoBid: true,
		}
		ledger.Append(a, bid)
		top.CurrentProxyBid = next
		top.UpdatedAt = now
		placed = append(placed, bid)
	}

	return placed
}

// activeProxies returns indexes into a.AutoBids of the proxies still able to outbid
// the current price, highest ceiling first. Equal ceilings go to the earlier proxy,
// then to the lower user id.
func activeProxies(a *models.Auction) []int {
	idx := make([]int, 0, len(a.AutoBids))
	for i, p := range a.AutoBids {
		if p.IsActive && p.MaxAmount.GreaterThan(a.CurrentBid) {
			idx = append(idx, i)
		}
	}

	sort.SliceStable(idx, func(i, j int) bool {
		pi, pj := a.AutoBids[idx[i]], a.AutoBids[idx[j]]
		if !pi.MaxAmount.Equal(pj.MaxAmount) {
			return pi.MaxAmount.GreaterThan(pj.MaxAmount)
		}
		if !pi.CreatedAt.Equal(pj.CreatedAt) {
			return pi.CreatedAt.Before(pj.CreatedAt)
		}
		return pi.UserID < pj.UserID
	})
	return idx
}
