package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
)

// Supported SQL drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type auctionRow struct {
	ID            string          `gorm:"primaryKey;type:varchar(64)"`
	Title         string          `gorm:"type:text;not null"`
	Description   string          `gorm:"type:text"`
	Category      string          `gorm:"type:varchar(64)"`
	SellerID      string          `gorm:"type:varchar(64);index;not null"`
	StartingPrice decimal.Decimal `gorm:"type:numeric(24,2);not null"`
	CurrentBid    decimal.Decimal `gorm:"type:numeric(24,2);not null"`
	EndTime       time.Time       `gorm:"index;not null"`
	WinnerID      string          `gorm:"type:varchar(64);index"`

	BuyNowEnabled bool                `gorm:"not null;default:false"`
	BuyNowPrice   decimal.NullDecimal `gorm:"type:numeric(24,2)"`
	SoldViaBuyNow bool                `gorm:"not null;default:false"`
	BuyNowBuyerID string              `gorm:"type:varchar(64)"`

	IsPaid         bool                `gorm:"index;not null;default:false"`
	PaymentMethod  string              `gorm:"type:varchar(64)"`
	TransactionID  string              `gorm:"type:varchar(64)"`
	PaidAmount     decimal.NullDecimal `gorm:"type:numeric(24,2)"`
	PaidAt         *time.Time
	DeadlineMissed bool       `gorm:"column:payment_deadline_missed;not null;default:false"`
	PaymentFailed  bool       `gorm:"not null;default:false"`
	Transferred    bool       `gorm:"column:transferred_to_second_bidder;index;not null;default:false"`
	TransferTime   *time.Time `gorm:"column:final_transfer_time"`

	Version   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`

	Bids     []bidRow      `gorm:"foreignKey:AuctionID;references:ID"`
	AutoBids []proxyBidRow `gorm:"foreignKey:AuctionID;references:ID"`
}

func (auctionRow) TableName() string { return "auctions" }

type bidRow struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)"`
	AuctionID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_bids_auction_seq,priority:1"`
	Seq       int             `gorm:"not null;uniqueIndex:idx_bids_auction_seq,priority:2"`
	BidderID  string          `gorm:"type:varchar(64);index;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(24,2);not null"`
	IsAutoBid bool            `gorm:"not null;default:false"`
	IsBuyNow  bool            `gorm:"not null;default:false"`
	CreatedAt time.Time       `gorm:"autoCreateTime:false"`
}

func (bidRow) TableName() string { return "bids" }

type proxyBidRow struct {
	AuctionID       string          `gorm:"primaryKey;type:varchar(64)"`
	Seq             int             `gorm:"primaryKey"`
	UserID          string          `gorm:"type:varchar(64);index;not null"`
	MaxAmount       decimal.Decimal `gorm:"type:numeric(24,2);not null"`
	CurrentProxyBid decimal.Decimal `gorm:"type:numeric(24,2);not null"`
	IsActive        bool            `gorm:"not null"`
	CreatedAt       time.Time       `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime:false"`
}

func (proxyBidRow) TableName() string { return "proxy_bids" }

// SQLRepo is a GORM implementation of AuctionDB. Bids are append-only rows keyed by
// ledger position; the auctions.version column provides the conditional write.
type SQLRepo struct {
	db *gorm.DB
}

// OpenGorm opens a SQLite or Postgres connection
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
		conn, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite sql: %w", err)
		}
		// a single connection keeps in-memory databases shared and serializes writers
		sqlDB.SetMaxOpenConns(1)
		return conn, nil
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("db: empty dsn")
		}
		conn, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("db: open sql: %w", err)
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		return conn, nil
	default:
		return nil, fmt.Errorf("db: unsupported driver: %s", driver)
	}
}

// NewSQLRepo migrates the schema and returns the repository
func NewSQLRepo(db *gorm.DB) (*SQLRepo, error) {
	if err := db.AutoMigrate(&auctionRow{}, &bidRow{}, &proxyBidRow{}); err != nil {
		return nil, fmt.Errorf("db: migrate: %w", err)
	}
	return &SQLRepo{db: db}, nil
}

// CreateAuction inserts a new auction with any bids and proxy bids it already holds
func (r *SQLRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	row := toAuctionRow(auction)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&auctionRow{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("create auction %s: %w", auction.AuctionID, err)
		}
		if count > 0 {
			return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrConflict)
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrConflict)
			}
			return fmt.Errorf("create auction %s: %w", auction.AuctionID, err)
		}
		if len(row.Bids) > 0 {
			if err := tx.Create(&row.Bids).Error; err != nil {
				return fmt.Errorf("create auction %s bids: %w", auction.AuctionID, err)
			}
		}
		if len(row.AutoBids) > 0 {
			if err := tx.Create(&row.AutoBids).Error; err != nil {
				return fmt.Errorf("create auction %s proxy bids: %w", auction.AuctionID, err)
			}
		}
		return nil
	})
}

// GetAuction loads an auction with its ledger and proxy bids
func (r *SQLRepo) GetAuction(ctx context.Context, auctionID model.AuctionID) (model.Auction, error) {
	var row auctionRow
	err := r.preloaded(r.db.WithContext(ctx)).First(&row, "id = ?", string(auctionID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return row.toModel(), nil
}

// SaveAuction writes the auction if auctions.version still equals auction.Version.
// New ledger entries are inserted, proxy bids are upserted by position.
func (r *SQLRepo) SaveAuction(ctx context.Context, auction model.Auction) (model.Auction, error) {
	row := toAuctionRow(auction)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&auctionRow{}).
			Where("id = ? AND version = ?", row.ID, auction.Version).
			Updates(auctionColumns(row, auction.Version+1))
		if res.Error != nil {
			return fmt.Errorf("save auction %s: %w", auction.AuctionID, res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&auctionRow{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("save auction %s: %w", auction.AuctionID, err)
			}
			if count == 0 {
				return fmt.Errorf("save auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionNotFound)
			}
			return fmt.Errorf("save auction %s at version %d: %w", auction.AuctionID, auction.Version, biddingerrors.ErrConflict)
		}

		var existing int64
		if err := tx.Model(&bidRow{}).Where("auction_id = ?", row.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("save auction %s: count bids: %w", auction.AuctionID, err)
		}
		if int(existing) < len(row.Bids) {
			appended := row.Bids[existing:]
			if err := tx.Create(&appended).Error; err != nil {
				return fmt.Errorf("save auction %s: append bids: %w", auction.AuctionID, err)
			}
		}

		if len(row.AutoBids) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "auction_id"}, {Name: "seq"}},
				DoUpdates: clause.AssignmentColumns([]string{"max_amount", "current_proxy_bid", "is_active", "updated_at"}),
			}).Create(&row.AutoBids).Error
			if err != nil {
				return fmt.Errorf("save auction %s: upsert proxy bids: %w", auction.AuctionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Auction{}, err
	}

	saved := auction.Clone()
	saved.Version++
	return saved, nil
}

// DeleteAuction removes the auction and its ledger if auctions.version still equals version
func (r *SQLRepo) DeleteAuction(ctx context.Context, auctionID model.AuctionID, version int64) error {
	id := string(auctionID)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND version = ?", id, version).Delete(&auctionRow{})
		if res.Error != nil {
			return fmt.Errorf("delete auction %s: %w", auctionID, res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&auctionRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("delete auction %s: %w", auctionID, err)
			}
			if count == 0 {
				return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
			}
			return fmt.Errorf("delete auction %s at version %d: %w", auctionID, version, biddingerrors.ErrConflict)
		}
		if err := tx.Where("auction_id = ?", id).Delete(&bidRow{}).Error; err != nil {
			return fmt.Errorf("delete auction %s bids: %w", auctionID, err)
		}
		if err := tx.Where("auction_id = ?", id).Delete(&proxyBidRow{}).Error; err != nil {
			return fmt.Errorf("delete auction %s proxy bids: %w", auctionID, err)
		}
		return nil
	})
}

// ListAuctions returns all auctions ordered by end time
func (r *SQLRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	var rows []auctionRow
	if err := r.preloaded(r.db.WithContext(ctx)).Order("end_time, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	return toModels(rows), nil
}

// ListAwaitingTransfer returns unpaid, unlatched auctions with a winner that ended before endedBefore
func (r *SQLRepo) ListAwaitingTransfer(ctx context.Context, endedBefore time.Time) ([]model.AuctionID, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&auctionRow{}).
		Where("end_time < ? AND is_paid = ? AND winner_id <> '' AND transferred_to_second_bidder = ?",
			endedBefore.UTC(), false, false).
		Order("end_time, id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list auctions awaiting transfer: %w", err)
	}

	out := make([]model.AuctionID, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.AuctionID(id))
	}
	return out, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *SQLRepo) GetAuctionsByBidder(ctx context.Context, userID model.UserID) ([]model.Auction, error) {
	db := r.db.WithContext(ctx)
	sub := db.Model(&bidRow{}).Select("auction_id").Where("bidder_id = ?", string(userID))

	var rows []auctionRow
	if err := r.preloaded(db).Where("id IN (?)", sub).Order("end_time, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}
	return toModels(rows), nil
}

func (r *SQLRepo) preloaded(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Bids", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("AutoBids", func(db *gorm.DB) *gorm.DB { return db.Order("seq") })
}

func auctionColumns(row auctionRow, version int64) map[string]any {
	return map[string]any{
		"title":                        row.Title,
		"description":                  row.Description,
		"category":                     row.Category,
		"starting_price":               row.StartingPrice,
		"current_bid":                  row.CurrentBid,
		"end_time":                     row.EndTime,
		"winner_id":                    row.WinnerID,
		"buy_now_enabled":              row.BuyNowEnabled,
		"buy_now_price":                row.BuyNowPrice,
		"sold_via_buy_now":             row.SoldViaBuyNow,
		"buy_now_buyer_id":             row.BuyNowBuyerID,
		"is_paid":                      row.IsPaid,
		"payment_method":               row.PaymentMethod,
		"transaction_id":               row.TransactionID,
		"paid_amount":                  row.PaidAmount,
		"paid_at":                      row.PaidAt,
		"payment_deadline_missed":      row.DeadlineMissed,
		"payment_failed":               row.PaymentFailed,
		"transferred_to_second_bidder": row.Transferred,
		"final_transfer_time":          row.TransferTime,
		"updated_at":                   row.UpdatedAt,
		"version":                      version,
	}
}

func toAuctionRow(a model.Auction) auctionRow {
	row := auctionRow{
		ID:             string(a.AuctionID),
		Title:          a.Title,
		Description:    a.Description,
		Category:       a.Category,
		SellerID:       string(a.Seller),
		StartingPrice:  a.StartingPrice,
		CurrentBid:     a.CurrentBid,
		EndTime:        a.EndTime.UTC(),
		WinnerID:       string(a.Winner),
		BuyNowEnabled:  a.BuyNowEnabled,
		SoldViaBuyNow:  a.SoldViaBuyNow,
		BuyNowBuyerID:  string(a.BuyNowBuyer),
		IsPaid:         a.IsPaid,
		DeadlineMissed: a.PaymentDeadlineMissed,
		PaymentFailed:  a.PaymentFailed,
		Transferred:    a.TransferredToSecondBidder,
		TransferTime:   utcPtr(a.FinalTransferTime),
		Version:        a.Version,
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
	}
	if a.BuyNowPrice != nil {
		row.BuyNowPrice = decimal.NewNullDecimal(*a.BuyNowPrice)
	}
	if a.Payment != nil {
		row.PaymentMethod = a.Payment.Method
		row.TransactionID = a.Payment.TransactionID
		row.PaidAmount = decimal.NewNullDecimal(a.Payment.Amount)
		paidAt := a.Payment.PaidAt.UTC()
		row.PaidAt = &paidAt
	}

	for i, b := range a.Bids {
		row.Bids = append(row.Bids, bidRow{
			ID:        b.BidID,
			AuctionID: row.ID,
			Seq:       i,
			BidderID:  string(b.BidderID),
			Amount:    b.Amount,
			IsAutoBid: b.IsAutoBid,
			IsBuyNow:  b.IsBuyNow,
			CreatedAt: b.CreatedAt.UTC(),
		})
	}
	for i, p := range a.AutoBids {
		row.AutoBids = append(row.AutoBids, proxyBidRow{
			AuctionID:       row.ID,
			Seq:             i,
			UserID:          string(p.UserID),
			MaxAmount:       p.MaxAmount,
			CurrentProxyBid: p.CurrentProxyBid,
			IsActive:        p.IsActive,
			CreatedAt:       p.CreatedAt.UTC(),
			UpdatedAt:       p.UpdatedAt.UTC(),
		})
	}
	return row
}

func (row auctionRow) toModel() model.Auction {
	a := model.Auction{
		AuctionID:                 model.AuctionID(row.ID),
		Title:                     row.Title,
		Description:               row.Description,
		Category:                  row.Category,
		Seller:                    model.UserID(row.SellerID),
		StartingPrice:             row.StartingPrice,
		CurrentBid:                row.CurrentBid,
		EndTime:                   row.EndTime.UTC(),
		Winner:                    model.UserID(row.WinnerID),
		BuyNowEnabled:             row.BuyNowEnabled,
		SoldViaBuyNow:             row.SoldViaBuyNow,
		BuyNowBuyer:               model.UserID(row.BuyNowBuyerID),
		IsPaid:                    row.IsPaid,
		PaymentDeadlineMissed:     row.DeadlineMissed,
		PaymentFailed:             row.PaymentFailed,
		TransferredToSecondBidder: row.Transferred,
		FinalTransferTime:         utcPtr(row.TransferTime),
		Version:                   row.Version,
		CreatedAt:                 row.CreatedAt.UTC(),
		UpdatedAt:                 row.UpdatedAt.UTC(),
		Bids:                      make([]model.Bid, 0, len(row.Bids)),
		AutoBids:                  make([]model.ProxyBid, 0, len(row.AutoBids)),
	}
	if row.BuyNowPrice.Valid {
		price := row.BuyNowPrice.Decimal
		a.BuyNowPrice = &price
	}
	if row.PaidAt != nil {
		a.Payment = &model.Payment{
			Method:        row.PaymentMethod,
			TransactionID: row.TransactionID,
			Amount:        row.PaidAmount.Decimal,
			PaidAt:        row.PaidAt.UTC(),
		}
	}

	for _, b := range row.Bids {
		a.Bids = append(a.Bids, model.Bid{
			BidID:     b.ID,
			AuctionID: a.AuctionID,
			BidderID:  model.UserID(b.BidderID),
			Amount:    b.Amount,
			CreatedAt: b.CreatedAt.UTC(),
			IsAutoBid: b.IsAutoBid,
			IsBuyNow:  b.IsBuyNow,
		})
	}
	for _, p := range row.AutoBids {
		a.AutoBids = append(a.AutoBids, model.ProxyBid{
			UserID:          model.UserID(p.UserID),
			MaxAmount:       p.MaxAmount,
			CurrentProxyBid: p.CurrentProxyBid,
			IsActive:        p.IsActive,
			CreatedAt:       p.CreatedAt.UTC(),
			UpdatedAt:       p.UpdatedAt.UTC(),
		})
	}
	return a
}

func toModels(rows []auctionRow) []model.Auction {
	out := make([]model.Auction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
