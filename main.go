package main

import (
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/clock"
	"auction-engine/internal/config"
	model "auction-engine/internal/models"
	"auction-engine/internal/notify"
	"auction-engine/internal/repository"
	"auction-engine/internal/scheduler"
	"auction-engine/internal/server"
	"auction-engine/internal/users"
	"auction-engine/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv("AUCTION_ENGINE_CONFIG_FILE"), "")
	if err != nil {
		utils.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}
	if err := utils.ConfigureLogger(utils.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		utils.Fatal("failed to configure logger", map[string]any{"error": err.Error()})
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewClock()

	repo, closeRepo, err := openStore(cfg.Database)
	if err != nil {
		utils.Fatal("failed to open auction store", map[string]any{"driver": cfg.Database.Driver, "error": err.Error()})
	}

	directory := users.NewMemoryDirectory(seedUsers()...)

	sink, closeSink := buildSink(cfg.NATS)
	dispatcher := notify.NewDispatcher(directory, sink, clk, cfg.Notifications.WorkerPoolSize, cfg.Notifications.QueueSize)

	maxBid, _ := cfg.Bidding.MaxBid()
	increment, _ := cfg.Bidding.Increment()
	biddingSvc := bidding.NewBiddingService(repo, directory, dispatcher, clk, bidding.Options{
		MaxBidAmount:          maxBid,
		MinProxyIncrement:     increment,
		ResolverMaxIterations: cfg.Bidding.ResolverMaxIterations,
		ConflictRetries:       cfg.Bidding.ConflictRetries,
		ConflictBackoff:       cfg.Bidding.ConflictBackoff,
		PaymentDeadline:       cfg.Scheduler.PaymentDeadline,
	})

	if cfg.Database.Driver == "memory" {
		prepopulateAuctions(ctx, biddingSvc, clk)
	}

	var sweeper scheduler.Sweeper = scheduler.NewDeadlineSweeper(scheduler.Config{
		Interval:        cfg.Scheduler.Interval,
		PaymentDeadline: cfg.Scheduler.PaymentDeadline,
		WorkerPoolSize:  cfg.Scheduler.WorkerPoolSize,
	}, repo, biddingSvc, clk)
	go func() {
		if err := sweeper.Start(ctx); err != nil {
			utils.Error("sweeper exited", map[string]any{"name": sweeper.Name(), "error": err.Error()})
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.SetupRouter(biddingSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "store": cfg.Database.Driver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("server failed", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("http shutdown failed", map[string]any{"error": err.Error()})
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		utils.Error("sweeper stop failed", map[string]any{"error": err.Error()})
	}
	dispatcher.Close()
	closeSink()
	if err := closeRepo(); err != nil {
		utils.Error("store close failed", map[string]any{"error": err.Error()})
	}
}

// openStore builds the configured auction store and its close func
func openStore(cfg config.DatabaseConfig) (repository.AuctionDB, func() error, error) {
	if cfg.Driver == "memory" {
		return repository.NewMemoryRepo(), func() error { return nil }, nil
	}

	db, err := repository.OpenGorm(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.NewSQLRepo(db)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return repo, sqlDB.Close, nil
}

// buildSink always logs events and also publishes them to NATS when a URL is configured
func buildSink(cfg config.NATSConfig) (notify.Sink, func()) {
	if cfg.URL == "" {
		return notify.LogSink{}, func() {}
	}

	nc, err := notify.ConnectNats(notify.NatsConfig{
		URL:            cfg.URL,
		SubjectPrefix:  cfg.SubjectPrefix,
		ConnectionName: cfg.ConnectionName,
		MaxReconnects:  cfg.MaxReconnects,
		ReconnectWait:  cfg.ReconnectWait,
	})
	if err != nil {
		utils.Warn("NATS unavailable, events will only be logged", map[string]any{"url": cfg.URL, "error": err.Error()})
		return notify.LogSink{}, func() {}
	}

	sink := notify.FanoutSink{notify.LogSink{}, notify.NewNatsSink(nc, cfg.SubjectPrefix)}
	return sink, func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
}

// seedUsers returns the demo participants of the in-memory directory
func seedUsers() []model.User {
	return []model.User{
		{UserID: "seller1", Username: "seller1", Email: "seller1@example.com"},
		{UserID: "user1", Username: "user1", Email: "user1@example.com"},
		{UserID: "user2", Username: "user2", Email: "user2@example.com"},
		{UserID: "user3", Username: "user3", Email: "user3@example.com"},
	}
}

// prepopulateAuctions adds sample auctions to the in-memory store
func prepopulateAuctions(ctx context.Context, svc *bidding.BiddingService, clk clock.Clock) {
	buyNow := utils.MustAmount("500")
	auctions := []model.NewAuction{
		{Seller: "seller1", Title: "title1", Description: "description1", StartingPrice: utils.MustAmount("100"), EndTime: clk.Now().Add(24 * time.Hour)},
		{Seller: "seller1", Title: "title2", Description: "description2", StartingPrice: utils.MustAmount("200"), EndTime: clk.Now().Add(48 * time.Hour), BuyNowEnabled: true, BuyNowPrice: &buyNow},
		{Seller: "seller1", Title: "title3", Description: "description3", StartingPrice: utils.MustAmount("150"), EndTime: clk.Now().Add(2 * time.Hour)},
	}

	for _, a := range auctions {
		if _, err := svc.CreateAuction(ctx, a); err != nil {
			utils.Warn("failed to seed auction", map[string]any{"title": a.Title, "error": err.Error()})
		}
	}
}
