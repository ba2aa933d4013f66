package bidding

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/clock"
	"auction-engine/internal/ledger"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/proxybid"
	"auction-engine/internal/repository"
	"auction-engine/internal/users"
	"auction-engine/utils"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Notifier receives events once the auction lock has been released
type Notifier interface {
	Notify(ctx context.Context, events ...notify.Event)
}

// Options are the operational parameters of the engine
type Options struct {
	MaxBidAmount          decimal.Decimal
	MinProxyIncrement     decimal.Decimal
	ResolverMaxIterations int
	ConflictRetries       int // total attempts of one read-apply-write cycle
	ConflictBackoff       time.Duration
	PaymentDeadline       time.Duration
}

// DefaultOptions returns the reference parameters
func DefaultOptions() Options {
	return Options{
		MaxBidAmount:          utils.MustAmount("100000000000"),
		MinProxyIncrement:     proxybid.DefaultIncrement,
		ResolverMaxIterations: proxybid.DefaultMaxIterations,
		ConflictRetries:       5,
		ConflictBackoff:       20 * time.Millisecond,
		PaymentDeadline:       time.Hour,
	}
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo     repository.AuctionDB
	users    users.Directory
	notifier Notifier
	clock    clock.Clock
	resolver *proxybid.Resolver
	locks    *keyedLocker
	opts     Options
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, directory users.Directory, notifier Notifier, clk clock.Clock, opts Options) *BiddingService {
	defaults := DefaultOptions()
	if !opts.MaxBidAmount.IsPositive() {
		opts.MaxBidAmount = defaults.MaxBidAmount
	}
	if opts.ConflictRetries <= 0 {
		opts.ConflictRetries = defaults.ConflictRetries
	}
	if opts.PaymentDeadline <= 0 {
		opts.PaymentDeadline = defaults.PaymentDeadline
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if clk == nil {
		clk = clock.NewClock()
	}

	return &BiddingService{
		repo:     repo,
		users:    directory,
		notifier: notifier,
		clock:    clk,
		resolver: proxybid.NewResolver(opts.ResolverMaxIterations, opts.MinProxyIncrement),
		locks:    newKeyedLocker(),
		opts:     opts,
	}
}

// PaymentDeadline returns how long a winner has to pay after the auction ends
func (s *BiddingService) PaymentDeadline() time.Duration {
	return s.opts.PaymentDeadline
}

// PlaceBid validates and admits a manual bid, then lets proxy bidders respond
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID models.AuctionID, bidderID models.UserID, amount decimal.Decimal) (models.BidOutcome, error) {
	if auctionID == "" || bidderID == "" {
		return models.BidOutcome{}, fmt.Errorf("service: %w - missing auctionID or userID", biddingerrors.ErrInvalidBid)
	}
	if err := s.validateAmount(amount); err != nil {
		return models.BidOutcome{}, err
	}
	if err := s.checkEligible(ctx, bidderID); err != nil {
		return models.BidOutcome{}, err
	}

	var outcome models.BidOutcome
	saved, err := s.mutate(ctx, auctionID, func(a *models.Auction, now time.Time) ([]notify.Event, error) {
		if a.HasEnded(now) {
			return nil, fmt.Errorf("service: %w - ended at %s", biddingerrors.ErrAuctionEnded, a.EndTime.Format(time.RFC3339))
		}
		if a.Seller == bidderID {
			return nil, fmt.Errorf("service: %w - sellers cannot bid on their own auction", biddingerrors.ErrForbidden)
		}
		if !amount.GreaterThan(a.CurrentBid) {
			return nil, fmt.Errorf("service: %w - current highest bid is %s", biddingerrors.ErrBidTooLow, a.CurrentBid)
		}

		// notifications describe the manual bid only, using the state before proxy resolution
		previousWinner := a.Winner
		previousAmount := a.CurrentBid

		bid := models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: a.AuctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		}
		ledger.Append(a, bid)
		auto := s.resolver.Resolve(a, now)
		a.UpdatedAt = now

		outcome = models.BidOutcome{Bid: bid, AutoBids: auto}

		var events []notify.Event
		if previousWinner != "" && previousWinner != bidderID {
			events = append(events, notify.OutbidEvent{
				Auction:        a.AuctionID,
				Title:          a.Title,
				User:           previousWinner,
				PreviousAmount: previousAmount,
				NewAmount:      amount,
			})
		}
		events = append(events, notify.NewBidEvent{
			Auction: a.AuctionID,
			Title:   a.Title,
			Seller:  a.Seller,
			Bidder:  bidderID,
			Amount:  amount,
		})
		return events, nil
	})
	if err != nil {
		return models.BidOutcome{}, err
	}

	outcome.Auction = saved
	utils.Info("service: bid admitted", map[string]any{
		"auction_id":  string(auctionID),
		"user_id":     string(bidderID),
		"amount":      amount.String(),
		"current_bid": saved.CurrentBid.String(),
		"winner":      string(saved.Winner),
		"auto_bids":   len(outcome.AutoBids),
	})
	return outcome, nil
}

// validateAmount checks the amount is positive, has at most AmountScale decimal
// places and is under the hard ceiling
func (s *BiddingService) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive amount", biddingerrors.ErrInvalidAmount)
	}
	if !amount.Equal(amount.Truncate(models.AmountScale)) {
		return fmt.Errorf("service: %w - at most %d decimal places", biddingerrors.ErrInvalidAmount, models.AmountScale)
	}
	if amount.GreaterThan(s.opts.MaxBidAmount) {
		return fmt.Errorf("service: %w - maximum is %s", biddingerrors.ErrInvalidAmount, s.opts.MaxBidAmount)
	}
	return nil
}

// checkEligible resolves the user and rejects suspended accounts
func (s *BiddingService) checkEligible(ctx context.Context, userID models.UserID) error {
	if s.users == nil {
		return nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("service: failed to resolve user %s: %w", userID, err)
	}
	if user.Suspended {
		return fmt.Errorf("service: %w - user %s is suspended", biddingerrors.ErrForbidden, userID)
	}
	return nil
}

// GetAuction returns a single auction
func (s *BiddingService) GetAuction(ctx context.Context, auctionID models.AuctionID) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	a, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// ListAuctions returns every auction
func (s *BiddingService) ListAuctions(ctx context.Context) ([]models.Auction, error) {
	list, err := s.repo.ListAuctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return list, nil
}

// GetBidsForAuction returns the ledger of an auction in chronological order
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID models.AuctionID) ([]models.Bid, error) {
	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if len(a.Bids) == 0 {
		return nil, fmt.Errorf("service: auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return a.Bids, nil
}

// GetWinningBid returns the highest bid for a specific auction
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID models.AuctionID) (models.Bid, error) {
	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, err
	}

	winning, ok := ledger.Highest(a.Bids)
	if !ok {
		return models.Bid{}, fmt.Errorf("service: auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return winning, nil
}

// GetAuctionsByUser returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByUser(ctx context.Context, userID models.UserID) ([]models.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}
	return auctions, nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, ...notify.Event) {}
