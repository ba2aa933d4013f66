package handler

import (
	"net/http"

	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

// SetProxyBidHandler handles PUT /auctions/:auction_id/autobid
func (h *BiddingHandler) SetProxyBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.ProxyBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SetProxyBidHandler", err)
		return
	}

	outcome, err := h.service.SetProxyBid(c.Request.Context(), model.AuctionID(auctionID), model.UserID(req.UserID), req.MaxAmount)
	if err != nil {
		helpers.RespondError(c, "SetProxyBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    req.UserID,
			"max_amount": req.MaxAmount.String(),
		})
		return
	}

	resp := helpers.ProxyBidResponse{
		AuctionID:  auctionID,
		ProxyBid:   outcome.ProxyBid,
		AutoBids:   helpers.NewBidResponses(outcome.AutoBids),
		CurrentBid: outcome.Auction.CurrentBid,
		Winner:     string(outcome.Auction.Winner),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "auto-bid set successfully")
	helpers.LogSuccess("SetProxyBidHandler", "auto-bid set successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    req.UserID,
	})
}

// GetProxyBidHandler handles GET /auctions/:auction_id/autobid?user_id=
func (h *BiddingHandler) GetProxyBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID := c.Query("user_id")

	proxy, err := h.service.GetProxyBid(c.Request.Context(), model.AuctionID(auctionID), model.UserID(userID))
	if err != nil {
		helpers.RespondError(c, "GetProxyBidHandler", err, map[string]any{"auction_id": auctionID, "user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, proxy, "auto-bid retrieved successfully")
}

// CancelProxyBidHandler handles DELETE /auctions/:auction_id/autobid?user_id=
func (h *BiddingHandler) CancelProxyBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID := c.Query("user_id")

	proxy, err := h.service.CancelProxyBid(c.Request.Context(), model.AuctionID(auctionID), model.UserID(userID))
	if err != nil {
		helpers.RespondError(c, "CancelProxyBidHandler", err, map[string]any{"auction_id": auctionID, "user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, proxy, "auto-bid cancelled successfully")
	helpers.LogSuccess("CancelProxyBidHandler", "auto-bid cancelled successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    userID,
	})
}

// BuyNowHandler handles POST /auctions/:auction_id/buy-now
func (h *BiddingHandler) BuyNowHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.BuyNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "BuyNowHandler", err)
		return
	}

	auction, err := h.service.BuyNow(c.Request.Context(), model.AuctionID(auctionID), model.UserID(req.UserID))
	if err != nil {
		helpers.RespondError(c, "BuyNowHandler", err, map[string]any{"auction_id": auctionID, "user_id": req.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "item purchased successfully")
	helpers.LogSuccess("BuyNowHandler", "item purchased successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    req.UserID,
		"price":      auction.CurrentBid.String(),
	})
}

// PaymentHandler handles POST /auctions/:auction_id/pay
func (h *BiddingHandler) PaymentHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PaymentHandler", err)
		return
	}

	auction, err := h.service.MarkPaid(c.Request.Context(), model.AuctionID(auctionID), model.UserID(req.UserID), req.Method)
	if err != nil {
		helpers.RespondError(c, "PaymentHandler", err, map[string]any{"auction_id": auctionID, "user_id": req.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "payment recorded successfully")
	helpers.LogSuccess("PaymentHandler", "payment recorded successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    req.UserID,
	})
}
