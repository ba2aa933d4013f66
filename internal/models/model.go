package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places every stored amount keeps.
// Amounts up to 1e11 at this scale fit a float64 exactly, which SQLite NUMERIC columns may use.
const AmountScale = 2

// UserID identifies a participant. Bids, proxy bids and winners always store the raw id.
type UserID string

// AuctionID identifies an auction record.
type AuctionID string

// User represents a participant in the auction
type User struct {
	UserID    UserID `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Suspended bool   `json:"suspended"`
}

// Bid represents a single entry of an auction's ledger
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID AuctionID       `json:"auction_id"`
	BidderID  UserID          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	IsAutoBid bool            `json:"is_auto_bid"`
	IsBuyNow  bool            `json:"is_buy_now"`
}

// ProxyBid is a standing ceiling a user authorized the system to bid up to.
// Cancelled entries stay in the auction's history with IsActive=false.
type ProxyBid struct {
	UserID          UserID          `json:"user_id"`
	MaxAmount       decimal.Decimal `json:"max_amount"`
	CurrentProxyBid decimal.Decimal `json:"current_proxy_bid"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Payment records the opaque payment transition of the winner
type Payment struct {
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// Auction is the persisted state of one auction
type Auction struct {
	AuctionID     AuctionID       `json:"auction_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Seller        UserID          `json:"seller"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentBid    decimal.Decimal `json:"current_bid"`
	EndTime       time.Time       `json:"end_time"`
	Winner        UserID          `json:"winner,omitempty"`
	Bids          []Bid           `json:"bids"`
	AutoBids      []ProxyBid      `json:"auto_bids"`

	BuyNowEnabled bool             `json:"buy_now_enabled"`
	BuyNowPrice   *decimal.Decimal `json:"buy_now_price,omitempty"`
	SoldViaBuyNow bool             `json:"sold_via_buy_now"`
	BuyNowBuyer   UserID           `json:"buy_now_buyer,omitempty"`

	IsPaid                    bool       `json:"is_paid"`
	Payment                   *Payment   `json:"payment,omitempty"`
	PaymentDeadlineMissed     bool       `json:"payment_deadline_missed"`
	PaymentFailed             bool       `json:"payment_failed"`
	TransferredToSecondBidder bool       `json:"transferred_to_second_bidder"`
	FinalTransferTime         *time.Time `json:"final_transfer_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// HasEnded reports whether no further bids, proxy bids or buy-now are accepted at now.
func (a Auction) HasEnded(now time.Time) bool {
	return a.SoldViaBuyNow || now.After(a.EndTime)
}

// HasWinner reports whether someone currently holds the auction
func (a Auction) HasWinner() bool {
	return a.Winner != ""
}

// AwaitingTransfer reports whether the winner missed the payment deadline and the
// one-shot transfer has not happened yet.
func (a Auction) AwaitingTransfer(now time.Time, deadline time.Duration) bool {
	return now.After(a.EndTime.Add(deadline)) &&
		!a.IsPaid &&
		a.HasWinner() &&
		!a.TransferredToSecondBidder
}

// ActiveProxyBid returns the index of the user's active proxy bid, or -1.
func (a Auction) ActiveProxyBid(userID UserID) int {
	for i := range a.AutoBids {
		if a.AutoBids[i].UserID == userID && a.AutoBids[i].IsActive {
			return i
		}
	}
	return -1
}

// HasBidFrom reports whether the user appears in the ledger
func (a Auction) HasBidFrom(userID UserID) bool {
	for _, b := range a.Bids {
		if b.BidderID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores never share slices with callers.
func (a Auction) Clone() Auction {
	c := a
	c.Bids = append([]Bid(nil), a.Bids...)
	c.AutoBids = append([]ProxyBid(nil), a.AutoBids...)
	if a.BuyNowPrice != nil {
		p := *a.BuyNowPrice
		c.BuyNowPrice = &p
	}
	if a.Payment != nil {
		p := *a.Payment
		c.Payment = &p
	}
	if a.FinalTransferTime != nil {
		t := *a.FinalTransferTime
		c.FinalTransferTime = &t
	}
	return c
}
