package handler

import (
	"net/http"
	"testing"
	"time"

	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newSettlementRouter(t *testing.T) (*gin.Engine, *MockBiddingServiceInterface) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions", handler.CreateAuctionHandler)
	router.GET("/auctions", handler.ListAuctionsHandler)
	router.GET("/auctions/:auction_id", handler.GetAuctionHandler)
	router.PATCH("/auctions/:auction_id", handler.UpdateAuctionHandler)
	router.DELETE("/auctions/:auction_id", handler.DeleteAuctionHandler)
	router.PUT("/auctions/:auction_id/autobid", handler.SetProxyBidHandler)
	router.GET("/auctions/:auction_id/autobid", handler.GetProxyBidHandler)
	router.DELETE("/auctions/:auction_id/autobid", handler.CancelProxyBidHandler)
	router.POST("/auctions/:auction_id/buy-now", handler.BuyNowHandler)
	router.POST("/auctions/:auction_id/pay", handler.PaymentHandler)
	return router, mockService
}

func TestAuctionHandlers(t *testing.T) {
	router, mockService := newSettlementRouter(t)
	end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("create", func(t *testing.T) {
		mockService.EXPECT().CreateAuction(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, in model.NewAuction) (model.Auction, error) {
				require.Equal(t, model.UserID("seller"), in.Seller)
				require.True(t, in.StartingPrice.Equal(dec("25")))
				require.True(t, in.EndTime.Equal(end))
				require.True(t, in.BuyNowEnabled)
				require.True(t, in.BuyNowPrice.Equal(dec("100")))
				return model.Auction{AuctionID: "new", Seller: in.Seller, CurrentBid: in.StartingPrice, EndTime: in.EndTime}, nil
			})

		status, resp := doRequest(t, router, http.MethodPost, "/auctions", map[string]any{
			"seller":          "seller",
			"title":           "Desk",
			"starting_price":  25,
			"end_time":        end.Format(time.RFC3339),
			"buy_now_enabled": true,
			"buy_now_price":   "100",
		})
		require.Equal(t, http.StatusCreated, status)
		require.Equal(t, "new", resp["data"].(map[string]any)["auction_id"])
	})

	t.Run("create_missing_title", func(t *testing.T) {
		status, resp := doRequest(t, router, http.MethodPost, "/auctions", map[string]any{
			"seller":   "seller",
			"end_time": end.Format(time.RFC3339),
		})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid request payload", resp["message"])
	})

	t.Run("create_rejected", func(t *testing.T) {
		mockService.EXPECT().CreateAuction(gomock.Any(), gomock.Any()).
			Return(model.Auction{}, biddingerrors.ErrInvalidAuction)
		status, _ := doRequest(t, router, http.MethodPost, "/auctions", map[string]any{
			"seller": "seller", "title": "Desk", "starting_price": 25, "end_time": end.Format(time.RFC3339),
		})
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("update_only_present_fields", func(t *testing.T) {
		mockService.EXPECT().UpdateAuction(gomock.Any(), model.AuctionID("a1"), model.UserID("seller"), gomock.Any()).DoAndReturn(
			func(_ any, _ model.AuctionID, _ model.UserID, patch model.AuctionPatch) (model.Auction, error) {
				require.NotNil(t, patch.Title)
				require.Equal(t, "Table", *patch.Title)
				require.Nil(t, patch.Description)
				require.Nil(t, patch.StartingPrice)
				require.Nil(t, patch.EndTime)
				return model.Auction{AuctionID: "a1", Title: *patch.Title}, nil
			})
		status, resp := doRequest(t, router, http.MethodPatch, "/auctions/a1", `{"seller":"seller","title":"Table"}`)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "Table", resp["data"].(map[string]any)["title"])
	})

	t.Run("update_after_bids", func(t *testing.T) {
		mockService.EXPECT().UpdateAuction(gomock.Any(), model.AuctionID("a2"), model.UserID("seller"), gomock.Any()).
			Return(model.Auction{}, biddingerrors.ErrForbidden)
		status, _ := doRequest(t, router, http.MethodPatch, "/auctions/a2", `{"seller":"seller","title":"Table"}`)
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("delete", func(t *testing.T) {
		mockService.EXPECT().DeleteAuction(gomock.Any(), model.AuctionID("a1"), model.UserID("seller")).Return(nil)
		status, resp := doRequest(t, router, http.MethodDelete, "/auctions/a1?seller=seller", nil)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "a1", resp["data"].(map[string]any)["auction_id"])
	})

	t.Run("delete_with_bids", func(t *testing.T) {
		mockService.EXPECT().DeleteAuction(gomock.Any(), model.AuctionID("a2"), model.UserID("seller")).
			Return(biddingerrors.ErrForbidden)
		status, _ := doRequest(t, router, http.MethodDelete, "/auctions/a2?seller=seller", nil)
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("delete_missing", func(t *testing.T) {
		mockService.EXPECT().DeleteAuction(gomock.Any(), model.AuctionID("nope"), model.UserID("seller")).
			Return(biddingerrors.ErrAuctionNotFound)
		status, _ := doRequest(t, router, http.MethodDelete, "/auctions/nope?seller=seller", nil)
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("get_and_list", func(t *testing.T) {
		mockService.EXPECT().GetAuction(gomock.Any(), model.AuctionID("a1")).Return(model.Auction{AuctionID: "a1"}, nil)
		status, _ := doRequest(t, router, http.MethodGet, "/auctions/a1", nil)
		require.Equal(t, http.StatusOK, status)

		mockService.EXPECT().GetAuction(gomock.Any(), model.AuctionID("nope")).Return(model.Auction{}, biddingerrors.ErrAuctionNotFound)
		status, _ = doRequest(t, router, http.MethodGet, "/auctions/nope", nil)
		require.Equal(t, http.StatusNotFound, status)

		mockService.EXPECT().ListAuctions(gomock.Any()).Return(nil, nil)
		status, resp := doRequest(t, router, http.MethodGet, "/auctions", nil)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, resp["data"].([]any), 0)
	})
}

func TestSettlementHandlers(t *testing.T) {
	router, mockService := newSettlementRouter(t)

	t.Run("set_proxy_bid", func(t *testing.T) {
		mockService.EXPECT().SetProxyBid(gomock.Any(), model.AuctionID("a1"), model.UserID("alice"), amountEq("200")).
			Return(model.ProxyBidOutcome{
				ProxyBid: model.ProxyBid{UserID: "alice", MaxAmount: dec("200"), CurrentProxyBid: dec("51"), IsActive: true},
				AutoBids: []model.Bid{{BidID: "b1", AuctionID: "a1", BidderID: "alice", Amount: dec("51"), IsAutoBid: true}},
				Auction:  model.Auction{AuctionID: "a1", CurrentBid: dec("51"), Winner: "alice"},
			}, nil)

		status, resp := doRequest(t, router, http.MethodPut, "/auctions/a1/autobid", `{"user_id":"alice","max_amount":200}`)
		require.Equal(t, http.StatusOK, status)
		data := resp["data"].(map[string]any)
		require.Equal(t, 51.0, data["current_bid"])
		require.Equal(t, "alice", data["winner"])
		require.Len(t, data["auto_bids"].([]any), 1)
	})

	t.Run("set_proxy_bid_too_low", func(t *testing.T) {
		mockService.EXPECT().SetProxyBid(gomock.Any(), model.AuctionID("a1"), model.UserID("bob"), amountEq("10")).
			Return(model.ProxyBidOutcome{}, biddingerrors.ErrBidTooLow)
		status, _ := doRequest(t, router, http.MethodPut, "/auctions/a1/autobid", `{"user_id":"bob","max_amount":10}`)
		require.Equal(t, http.StatusConflict, status)
	})

	t.Run("get_and_cancel_proxy_bid", func(t *testing.T) {
		mockService.EXPECT().GetProxyBid(gomock.Any(), model.AuctionID("a1"), model.UserID("alice")).
			Return(model.ProxyBid{UserID: "alice", IsActive: true}, nil)
		status, _ := doRequest(t, router, http.MethodGet, "/auctions/a1/autobid?user_id=alice", nil)
		require.Equal(t, http.StatusOK, status)

		mockService.EXPECT().CancelProxyBid(gomock.Any(), model.AuctionID("a1"), model.UserID("alice")).
			Return(model.ProxyBid{UserID: "alice"}, nil)
		status, resp := doRequest(t, router, http.MethodDelete, "/auctions/a1/autobid?user_id=alice", nil)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, false, resp["data"].(map[string]any)["is_active"])

		mockService.EXPECT().GetProxyBid(gomock.Any(), model.AuctionID("a1"), model.UserID("alice")).
			Return(model.ProxyBid{}, biddingerrors.ErrNoActiveProxyBid)
		status, _ = doRequest(t, router, http.MethodGet, "/auctions/a1/autobid?user_id=alice", nil)
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("buy_now", func(t *testing.T) {
		mockService.EXPECT().BuyNow(gomock.Any(), model.AuctionID("a2"), model.UserID("bob")).
			Return(model.Auction{AuctionID: "a2", SoldViaBuyNow: true, Winner: "bob", CurrentBid: dec("500")}, nil)
		status, resp := doRequest(t, router, http.MethodPost, "/auctions/a2/buy-now", `{"user_id":"bob"}`)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, true, resp["data"].(map[string]any)["sold_via_buy_now"])

		mockService.EXPECT().BuyNow(gomock.Any(), model.AuctionID("a2"), model.UserID("carol")).
			Return(model.Auction{}, biddingerrors.ErrAuctionEnded)
		status, _ = doRequest(t, router, http.MethodPost, "/auctions/a2/buy-now", `{"user_id":"carol"}`)
		require.Equal(t, http.StatusConflict, status)

		status, _ = doRequest(t, router, http.MethodPost, "/auctions/a2/buy-now", `{}`)
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("pay", func(t *testing.T) {
		mockService.EXPECT().MarkPaid(gomock.Any(), model.AuctionID("a3"), model.UserID("alice"), "paypal").
			Return(model.Auction{AuctionID: "a3", IsPaid: true}, nil)
		status, _ := doRequest(t, router, http.MethodPost, "/auctions/a3/pay", `{"user_id":"alice","method":"paypal"}`)
		require.Equal(t, http.StatusOK, status)

		mockService.EXPECT().MarkPaid(gomock.Any(), model.AuctionID("a3"), model.UserID("alice"), "").
			Return(model.Auction{}, biddingerrors.ErrAlreadyPaid)
		status, resp := doRequest(t, router, http.MethodPost, "/auctions/a3/pay", `{"user_id":"alice"}`)
		require.Equal(t, http.StatusConflict, status)
		require.Equal(t, "payment already completed", resp["message"])

		mockService.EXPECT().MarkPaid(gomock.Any(), model.AuctionID("a3"), model.UserID("bob"), "").
			Return(model.Auction{}, biddingerrors.ErrForbidden)
		status, _ = doRequest(t, router, http.MethodPost, "/auctions/a3/pay", `{"user_id":"bob"}`)
		require.Equal(t, http.StatusForbidden, status)
	})
}
