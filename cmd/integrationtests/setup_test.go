package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/clock"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/internal/scheduler"
	"auction-engine/internal/server"
	"auction-engine/internal/users"

	"github.com/gin-gonic/gin"
)

var testStart = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

// recordingSink keeps every delivered envelope for assertions
type recordingSink struct {
	mu   sync.Mutex
	envs []notify.Envelope
}

func (s *recordingSink) Deliver(_ context.Context, env notify.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
	return nil
}

// To returns the kinds delivered to a user in delivery order
func (s *recordingSink) To(userID model.UserID) []notify.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []notify.Kind
	for _, env := range s.envs {
		if env.Recipient.UserID == userID {
			kinds = append(kinds, env.Kind)
		}
	}
	return kinds
}

// TestEnv wires the real service stack over an in-memory store and a fake clock
type TestEnv struct {
	Router     *gin.Engine
	Service    *bidding.BiddingService
	Repo       *repository.MemoryRepo
	Clock      *clock.Fake
	Sink       *recordingSink
	Sweeper    *scheduler.DeadlineSweeper
	dispatcher *notify.Dispatcher
	flushOnce  sync.Once
}

// SetupTestEnv initializes the router with in-memory repository for integration testing.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewFake(testStart)
	repo := repository.NewMemoryRepo()
	directory := users.NewMemoryDirectory(
		model.User{UserID: "seller1", Username: "Seller One", Email: "seller1@example.com"},
		model.User{UserID: "user1", Username: "User One", Email: "user1@example.com"},
		model.User{UserID: "user2", Username: "User Two", Email: "user2@example.com"},
		model.User{UserID: "user3", Username: "User Three", Email: "user3@example.com"},
		model.User{UserID: "banned", Username: "Banned", Email: "banned@example.com", Suspended: true},
	)
	sink := &recordingSink{}
	dispatcher := notify.NewDispatcher(directory, sink, clk, 2, 64)

	opts := bidding.DefaultOptions()
	service := bidding.NewBiddingService(repo, directory, dispatcher, clk, opts)
	sweeper := scheduler.NewDeadlineSweeper(scheduler.Config{PaymentDeadline: opts.PaymentDeadline}, repo, service, clk)

	env := &TestEnv{
		Router:     server.SetupRouter(service),
		Service:    service,
		Repo:       repo,
		Clock:      clk,
		Sink:       sink,
		Sweeper:    sweeper,
		dispatcher: dispatcher,
	}
	t.Cleanup(env.FlushNotifications)
	return env
}

// FlushNotifications waits for queued deliveries. The env cannot notify afterwards.
func (e *TestEnv) FlushNotifications() {
	e.flushOnce.Do(e.dispatcher.Close)
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and returns the
// envelope's "data" member on success or the whole envelope on error.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := ExecuteRequest(t, router, method, url, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if data, ok := resp["data"].(map[string]any); ok && w.Code < 300 {
			resp = data
		}
	}
	return resp, w
}

// ExecuteListRequest is ExecuteRequestAndParse for endpoints whose data is an array
func ExecuteListRequest(t *testing.T, router *gin.Engine, url string) ([]any, *httptest.ResponseRecorder) {
	t.Helper()
	w := ExecuteRequest(t, router, "GET", url, nil)

	var resp struct {
		Data []any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data, w
}

// CreateAuction posts a listing for seller1 that ends after d and returns its id
func (e *TestEnv) CreateAuction(t *testing.T, startingPrice float64, d time.Duration, buyNow float64) string {
	t.Helper()
	body := map[string]any{
		"seller":         "seller1",
		"title":          "Vintage camera",
		"description":    "Working condition",
		"category":       "photo",
		"starting_price": startingPrice,
		"end_time":       e.Clock.Now().Add(d).Format(time.RFC3339),
	}
	if buyNow > 0 {
		body["buy_now_enabled"] = true
		body["buy_now_price"] = buyNow
	}

	resp, w := ExecuteRequestAndParse(t, e.Router, "POST", "/auctions", body)
	if w.Code != 201 {
		t.Fatalf("create auction: status %d body %s", w.Code, w.Body.String())
	}
	return resp["auction_id"].(string)
}
