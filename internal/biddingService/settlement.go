package bidding

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/ledger"
	"auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/utils"
	"context"
	"fmt"
	"strings"
	"time"
)

// MarkPaid records the winner's payment. Settlement itself happens elsewhere;
// this only flips the paid flag and keeps the receipt.
func (s *BiddingService) MarkPaid(ctx context.Context, auctionID models.AuctionID, userID models.UserID, method string) (models.Auction, error) {
	if auctionID == "" || userID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing auctionID or userID", biddingerrors.ErrInvalidBid)
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = "card"
	}

	saved, err := s.mutate(ctx, auctionID, func(a *models.Auction, now time.Time) ([]notify.Event, error) {
		if !a.HasEnded(now) {
			return nil, fmt.Errorf("service: %w - auction is still running", biddingerrors.ErrForbidden)
		}
		if !a.HasWinner() || a.Winner != userID {
			return nil, fmt.Errorf("service: %w - only the winner can pay", biddingerrors.ErrForbidden)
		}
		if a.IsPaid {
			return nil, fmt.Errorf("service: %w", biddingerrors.ErrAlreadyPaid)
		}
		if a.PaymentFailed {
			return nil, fmt.Errorf("service: %w - payment window closed", biddingerrors.ErrForbidden)
		}

		a.IsPaid = true
		a.Payment = &models.Payment{
			Method:        method,
			TransactionID: utils.NewTransactionID(),
			Amount:        a.CurrentBid,
			PaidAt:        now,
		}
		a.UpdatedAt = now

		return []notify.Event{notify.PaymentReceivedEvent{
			Auction:       a.AuctionID,
			Title:         a.Title,
			Seller:        a.Seller,
			Buyer:         userID,
			Amount:        a.CurrentBid,
			TransactionID: a.Payment.TransactionID,
		}}, nil
	})
	if err != nil {
		return models.Auction{}, err
	}

	utils.Info("service: payment recorded", map[string]any{
		"auction_id":     string(auctionID),
		"user_id":        string(userID),
		"amount":         saved.CurrentBid.String(),
		"transaction_id": saved.Payment.TransactionID,
	})
	return saved, nil
}

// TransferIfOverdue hands an unpaid auction to the runner-up once the payment
// deadline has passed. It runs at most once per auction: the transfer latch
// is set whether or not a runner-up exists.
func (s *BiddingService) TransferIfOverdue(ctx context.Context, auctionID models.AuctionID) (models.TransferOutcome, error) {
	outcome := models.TransferOutcome{AuctionID: auctionID, Result: models.TransferSkipped}

	_, err := s.mutate(ctx, auctionID, func(a *models.Auction, now time.Time) ([]notify.Event, error) {
		outcome = models.TransferOutcome{AuctionID: auctionID, Result: models.TransferSkipped}
		if !a.AwaitingTransfer(now, s.opts.PaymentDeadline) {
			return nil, errUnchanged
		}

		previous := a.Winner
		outcome.PreviousWinner = previous
		a.PaymentDeadlineMissed = true
		a.TransferredToSecondBidder = true
		a.UpdatedAt = now

		runnerUp, ok := ledger.RunnerUp(a.Bids, previous)
		if !ok {
			a.PaymentFailed = true
			outcome.Result = models.TransferFailed
			outcome.Amount = a.CurrentBid
			return []notify.Event{notify.DeadlineMissedEvent{
				Auction: a.AuctionID,
				Title:   a.Title,
				User:    previous,
				Amount:  a.CurrentBid,
			}}, nil
		}

		transferredAt := now
		a.Winner = runnerUp.BidderID
		a.CurrentBid = runnerUp.Amount
		a.FinalTransferTime = &transferredAt

		outcome.Result = models.TransferReassigned
		outcome.NewWinner = runnerUp.BidderID
		outcome.Amount = runnerUp.Amount

		return []notify.Event{
			notify.WonEvent{
				Auction:        a.AuctionID,
				Title:          a.Title,
				User:           runnerUp.BidderID,
				Amount:         runnerUp.Amount,
				PayImmediately: true,
			},
			notify.DeadlineMissedEvent{
				Auction: a.AuctionID,
				Title:   a.Title,
				User:    previous,
				Amount:  runnerUp.Amount,
			},
			notify.WinnerChangedEvent{
				Auction:        a.AuctionID,
				Title:          a.Title,
				Seller:         a.Seller,
				PreviousWinner: previous,
				NewWinner:      runnerUp.BidderID,
				Amount:         runnerUp.Amount,
			},
		}, nil
	})
	if err != nil {
		return models.TransferOutcome{AuctionID: auctionID}, err
	}

	if outcome.Result != models.TransferSkipped {
		utils.Warn("service: payment deadline missed", map[string]any{
			"auction_id":      string(auctionID),
			"result":          string(outcome.Result),
			"previous_winner": string(outcome.PreviousWinner),
			"new_winner":      string(outcome.NewWinner),
			"amount":          outcome.Amount.String(),
		})
	}
	return outcome, nil
}
