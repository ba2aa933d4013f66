package helpers

import (
	"time"

	model "auction-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string          `json:"auction_id" binding:"required"`
	UserID    string          `json:"user_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type CreateAuctionRequest struct {
	Seller        string           `json:"seller" binding:"required"`
	Title         string           `json:"title" binding:"required"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	StartingPrice decimal.Decimal  `json:"starting_price"`
	EndTime       time.Time        `json:"end_time" binding:"required"`
	BuyNowEnabled bool             `json:"buy_now_enabled"`
	BuyNowPrice   *decimal.Decimal `json:"buy_now_price"`
}

// UpdateAuctionRequest only changes the fields that are present
type UpdateAuctionRequest struct {
	Seller        string           `json:"seller" binding:"required"`
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category"`
	StartingPrice *decimal.Decimal `json:"starting_price"`
	EndTime       *time.Time       `json:"end_time"`
}

type ProxyBidRequest struct {
	UserID    string          `json:"user_id" binding:"required"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

type BuyNowRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type PaymentRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Method string `json:"method"`
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	IsAutoBid bool            `json:"is_auto_bid"`
	IsBuyNow  bool            `json:"is_buy_now"`
	CreatedAt string          `json:"created_at"`
}

type PlaceBidResponse struct {
	Bid        BidResponse     `json:"bid"`
	AutoBids   []BidResponse   `json:"auto_bids"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	Winner     string          `json:"winner"`
}

type ProxyBidResponse struct {
	AuctionID  string          `json:"auction_id"`
	ProxyBid   model.ProxyBid  `json:"proxy_bid"`
	AutoBids   []BidResponse   `json:"auto_bids"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	Winner     string          `json:"winner"`
}

// NewBidResponse converts a ledger entry to its wire form
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: string(bid.AuctionID),
		UserID:    string(bid.BidderID),
		Amount:    bid.Amount,
		IsAutoBid: bid.IsAutoBid,
		IsBuyNow:  bid.IsBuyNow,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewBidResponses converts a slice of ledger entries, never returning nil
func NewBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}
