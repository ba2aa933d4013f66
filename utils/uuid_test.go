package utils

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.NotEqual(t, id, GenerateID())
}

func TestNewTransactionID(t *testing.T) {
	require.Regexp(t, regexp.MustCompile(`^TXN-[0-9A-F]{12}$`), NewTransactionID())
}
