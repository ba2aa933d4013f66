package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"auction-engine/utils"
)

// NatsConfig holds the NATS connection settings for the event sink
type NatsConfig struct {
	URL            string
	SubjectPrefix  string
	ConnectionName string
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// Publisher is the subset of *nats.Conn the sink needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NatsSink publishes envelopes as JSON on "<prefix>.<kind>"
type NatsSink struct {
	pub    Publisher
	prefix string
}

// NewNatsSink creates a sink over an established publisher
func NewNatsSink(pub Publisher, prefix string) *NatsSink {
	if prefix == "" {
		prefix = "auction.events"
	}
	return &NatsSink{pub: pub, prefix: prefix}
}

// ConnectNats dials NATS with reconnect handling
func ConnectNats(cfg NatsConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				utils.Error("Disconnected from NATS", map[string]any{"error": err.Error()})
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			utils.Info("Reconnected to NATS", map[string]any{"url": nc.ConnectedUrl()})
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			utils.Info("NATS connection closed", nil)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// Subject returns the subject an envelope of kind is published on
func (s *NatsSink) Subject(kind Kind) string {
	return fmt.Sprintf("%s.%s", s.prefix, kind)
}

func (s *NatsSink) Deliver(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := s.pub.Publish(s.Subject(env.Kind), data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
