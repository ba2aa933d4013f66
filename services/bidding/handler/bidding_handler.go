package handler

import (
	"context"
	"errors"
	"net/http"

	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=bidding_handler.go -destination=mock_service.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID model.AuctionID, userID model.UserID, amount decimal.Decimal) (model.BidOutcome, error)
	GetBidsForAuction(ctx context.Context, auctionID model.AuctionID) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID model.AuctionID) (model.Bid, error)
	GetAuctionsByUser(ctx context.Context, userID model.UserID) ([]model.Auction, error)

	CreateAuction(ctx context.Context, in model.NewAuction) (model.Auction, error)
	UpdateAuction(ctx context.Context, auctionID model.AuctionID, sellerID model.UserID, patch model.AuctionPatch) (model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID model.AuctionID, sellerID model.UserID) error
	GetAuction(ctx context.Context, auctionID model.AuctionID) (model.Auction, error)
	ListAuctions(ctx context.Context) ([]model.Auction, error)

	SetProxyBid(ctx context.Context, auctionID model.AuctionID, userID model.UserID, maxAmount decimal.Decimal) (model.ProxyBidOutcome, error)
	GetProxyBid(ctx context.Context, auctionID model.AuctionID, userID model.UserID) (model.ProxyBid, error)
	CancelProxyBid(ctx context.Context, auctionID model.AuctionID, userID model.UserID) (model.ProxyBid, error)

	BuyNow(ctx context.Context, auctionID model.AuctionID, buyerID model.UserID) (model.Auction, error)
	MarkPaid(ctx context.Context, auctionID model.AuctionID, userID model.UserID, method string) (model.Auction, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	outcome, err := h.service.PlaceBid(c.Request.Context(), model.AuctionID(req.AuctionID), model.UserID(req.UserID), req.Amount)
	if err != nil {
		helpers.RespondError(c, "RecordBidHandler", err, map[string]any{
			"auction_id": req.AuctionID,
			"user_id":    req.UserID,
			"amount":     req.Amount.String(),
		})
		return
	}

	resp := helpers.PlaceBidResponse{
		Bid:        helpers.NewBidResponse(outcome.Bid),
		AutoBids:   helpers.NewBidResponses(outcome.AutoBids),
		CurrentBid: outcome.Auction.CurrentBid,
		Winner:     string(outcome.Auction.Winner),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     outcome.Bid.BidID,
		"auction_id": req.AuctionID,
		"user_id":    req.UserID,
		"amount":     req.Amount.String(),
	})
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), model.AuctionID(auctionID))
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.RespondError(c, "GetBidsByAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := helpers.NewBidResponses(bids)
	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), model.AuctionID(auctionID))
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"auction_id": auctionID})
			return
		}
		helpers.RespondError(c, "GetWinningBidHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": auctionID,
		"user_id":    string(bid.BidderID),
		"amount":     bid.Amount.String(),
	})
}

// GetAuctionsByUserHandler handles GET /users/:user_id/auctions
func (h *BiddingHandler) GetAuctionsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	auctions, err := h.service.GetAuctionsByUser(c.Request.Context(), model.UserID(userID))
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.RespondError(c, "GetAuctionsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByUserHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        userID,
		"auctions_count": len(auctions),
	})
}
