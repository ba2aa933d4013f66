package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrUserNoBids      = errors.New("user has not placed any bids")
	ErrConflict        = errors.New("concurrent auction update")
)

// business logic errors
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrForbidden         = errors.New("action not allowed")
	ErrBuyNowUnavailable = errors.New("buy now unavailable")
	ErrAlreadyPaid       = errors.New("payment already completed")
	ErrNoActiveProxyBid  = errors.New("no active auto-bid found")
	ErrInvalidAuction    = errors.New("invalid auction details")
)

// ErrNotificationFailed marks a best-effort delivery failure. It is logged, never returned to bidders.
var ErrNotificationFailed = errors.New("notification delivery failed")
