package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-api-nosql/internal/domain"
)

// TokenStore is the slice of the token repository the sweep consumes.
type TokenStore interface {
	FindExpired(ctx context.Context, now time.Time) ([]domain.VerificationToken, error)
	Delete(ctx context.Context, tokenID string) error
}

type Service interface {
	// Sweep deletes every token whose expiry has passed at now and
	// returns how many records it actually removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	tokens TokenStore
}

func NewService(tokens TokenStore) Service {
	return &service{tokens: tokens}
}

// Sweep runs off the request path and may race with a verification
// deleting the same record; Delete is idempotent, so the race is
// harmless and only the count differs.
func (s *service) Sweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.tokens.FindExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired verification tokens: %w", err)
	}

	deleted := 0
	for _, t := range expired {
		if err := s.tokens.Delete(ctx, t.TokenID); err != nil {
			slog.Warn("failed to delete expired verification token", "token_id", t.TokenID, "err", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
