package notify

import (
	"github.com/shopspring/decimal"

	"auction-engine/internal/models"
)

// Kind names a notification type. It is also the last token of the NATS subject.
type Kind string

const (
	KindOutbid          Kind = "outbid"
	KindNewBid          Kind = "new_bid"
	KindWon             Kind = "won"
	KindDeadlineMissed  Kind = "deadline_missed"
	KindWinnerChanged   Kind = "winner_changed"
	KindPaymentReceived Kind = "payment_received"
	KindBuyNowSold      Kind = "buy_now_sold"
)

// Event is something a single user should be told about. Events carry raw ids only;
// names and addresses are resolved at delivery time.
type Event interface {
	Kind() Kind
	Recipient() models.UserID
	AuctionID() models.AuctionID
}

// OutbidEvent tells the previous leader a manual bid displaced them
type OutbidEvent struct {
	Auction        models.AuctionID `json:"auction_id"`
	Title          string           `json:"title"`
	User           models.UserID    `json:"user_id"`
	PreviousAmount decimal.Decimal  `json:"previous_amount"`
	NewAmount      decimal.Decimal  `json:"new_amount"`
}

func (e OutbidEvent) Kind() Kind                  { return KindOutbid }
func (e OutbidEvent) Recipient() models.UserID    { return e.User }
func (e OutbidEvent) AuctionID() models.AuctionID { return e.Auction }

// NewBidEvent tells the seller a manual bid was admitted
type NewBidEvent struct {
	Auction models.AuctionID `json:"auction_id"`
	Title   string           `json:"title"`
	Seller  models.UserID    `json:"seller_id"`
	Bidder  models.UserID    `json:"bidder_id"`
	Amount  decimal.Decimal  `json:"amount"`
}

func (e NewBidEvent) Kind() Kind                  { return KindNewBid }
func (e NewBidEvent) Recipient() models.UserID    { return e.Seller }
func (e NewBidEvent) AuctionID() models.AuctionID { return e.Auction }

// WonEvent tells a user they now hold the auction and owe payment
type WonEvent struct {
	Auction models.AuctionID `json:"auction_id"`
	Title   string           `json:"title"`
	User    models.UserID    `json:"user_id"`
	Amount  decimal.Decimal  `json:"amount"`
	// PayImmediately is set for second-chance winners, who get no new payment window.
	PayImmediately bool `json:"pay_immediately"`
}

func (e WonEvent) Kind() Kind                  { return KindWon }
func (e WonEvent) Recipient() models.UserID    { return e.User }
func (e WonEvent) AuctionID() models.AuctionID { return e.Auction }

// DeadlineMissedEvent tells the defaulting winner they lost the item
type DeadlineMissedEvent struct {
	Auction models.AuctionID `json:"auction_id"`
	Title   string           `json:"title"`
	User    models.UserID    `json:"user_id"`
	Amount  decimal.Decimal  `json:"amount"`
}

func (e DeadlineMissedEvent) Kind() Kind                  { return KindDeadlineMissed }
func (e DeadlineMissedEvent) Recipient() models.UserID    { return e.User }
func (e DeadlineMissedEvent) AuctionID() models.AuctionID { return e.Auction }

// WinnerChangedEvent tells the seller the item went to the runner-up
type WinnerChangedEvent struct {
	Auction        models.AuctionID `json:"auction_id"`
	Title          string           `json:"title"`
	Seller         models.UserID    `json:"seller_id"`
	PreviousWinner models.UserID    `json:"previous_winner"`
	NewWinner      models.UserID    `json:"new_winner"`
	Amount         decimal.Decimal  `json:"amount"`
}

func (e WinnerChangedEvent) Kind() Kind                  { return KindWinnerChanged }
func (e WinnerChangedEvent) Recipient() models.UserID    { return e.Seller }
func (e WinnerChangedEvent) AuctionID() models.AuctionID { return e.Auction }

// PaymentReceivedEvent tells the seller the winner paid
type PaymentReceivedEvent struct {
	Auction       models.AuctionID `json:"auction_id"`
	Title         string           `json:"title"`
	Seller        models.UserID    `json:"seller_id"`
	Buyer         models.UserID    `json:"buyer_id"`
	Amount        decimal.Decimal  `json:"amount"`
	TransactionID string           `json:"transaction_id"`
}

func (e PaymentReceivedEvent) Kind() Kind                  { return KindPaymentReceived }
func (e PaymentReceivedEvent) Recipient() models.UserID    { return e.Seller }
func (e PaymentReceivedEvent) AuctionID() models.AuctionID { return e.Auction }

// BuyNowSoldEvent tells the seller the item was bought at the fixed price
type BuyNowSoldEvent struct {
	Auction models.AuctionID `json:"auction_id"`
	Title   string           `json:"title"`
	Seller  models.UserID    `json:"seller_id"`
	Buyer   models.UserID    `json:"buyer_id"`
	Amount  decimal.Decimal  `json:"amount"`
}

func (e BuyNowSoldEvent) Kind() Kind                  { return KindBuyNowSold }
func (e BuyNowSoldEvent) Recipient() models.UserID    { return e.Seller }
func (e BuyNowSoldEvent) AuctionID() models.AuctionID { return e.Auction }
