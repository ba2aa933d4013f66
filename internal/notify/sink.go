package notify

import (
	"context"
	"errors"

	"auction-engine/utils"
)

// LogSink writes every envelope to the structured log
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, env Envelope) error {
	utils.Info("notification", map[string]any{
		"kind":       string(env.Kind),
		"auction_id": string(env.Event.AuctionID()),
		"user_id":    string(env.Recipient.UserID),
		"username":   env.Recipient.Username,
		"email":      env.Recipient.Email,
	})
	return nil
}

// FanoutSink delivers to every sink and joins their errors
type FanoutSink []Sink

func (f FanoutSink) Deliver(ctx context.Context, env Envelope) error {
	var errs []error
	for _, s := range f {
		if err := s.Deliver(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
