package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerificationToken_Expired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := VerificationToken{
		TokenID:   "t1",
		Email:     "user@example.com",
		Code:      "482913",
		CreatedAt: issued,
		ExpiresAt: issued.Add(5 * time.Minute).Unix(),
	}

	assert.False(t, token.Expired(issued))
	assert.False(t, token.Expired(issued.Add(4*time.Minute+59*time.Second)))
	assert.False(t, token.Expired(issued.Add(5*time.Minute)))
	assert.True(t, token.Expired(issued.Add(5*time.Minute+1*time.Second)))
}
