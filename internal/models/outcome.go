package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewAuction holds the seller supplied fields of a new listing
type NewAuction struct {
	Seller        UserID
	Title         string
	Description   string
	Category      string
	StartingPrice decimal.Decimal
	EndTime       time.Time
	BuyNowEnabled bool
	BuyNowPrice   *decimal.Decimal
}

// AuctionPatch holds optional changes to a listing that has no bids yet
type AuctionPatch struct {
	Title         *string
	Description   *string
	Category      *string
	StartingPrice *decimal.Decimal
	EndTime       *time.Time
}

// BidOutcome is the result of admitting a manual bid
type BidOutcome struct {
	Bid      Bid     `json:"bid"`
	AutoBids []Bid   `json:"auto_bids"`
	Auction  Auction `json:"auction"`
}

// ProxyBidOutcome is the result of setting a proxy bid
type ProxyBidOutcome struct {
	ProxyBid ProxyBid `json:"proxy_bid"`
	AutoBids []Bid    `json:"auto_bids"`
	Auction  Auction  `json:"auction"`
}

// TransferResult tells what a deadline sweep did to one auction
type TransferResult string

const (
	// TransferSkipped means the auction was not eligible (paid, latched, or not overdue yet)
	TransferSkipped TransferResult = "skipped"
	// TransferReassigned means the runner-up became the winner
	TransferReassigned TransferResult = "reassigned"
	// TransferFailed means there was no runner-up and the item stays unsold
	TransferFailed TransferResult = "payment_failed"
)

// TransferOutcome describes a deadline transfer
type TransferOutcome struct {
	AuctionID      AuctionID       `json:"auction_id"`
	Result         TransferResult  `json:"result"`
	PreviousWinner UserID          `json:"previous_winner,omitempty"`
	NewWinner      UserID          `json:"new_winner,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
}
