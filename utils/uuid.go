package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a random UUID used for auction and bid ids
func GenerateID() string {
	return uuid.NewString()
}

// NewTransactionID returns a payment reference such as TXN-1A2B3C4D5E6F
func NewTransactionID() string {
	id := uuid.New()
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}
