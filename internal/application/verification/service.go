package verification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otp-api-nosql/internal/domain"
	"github.com/otp-api-nosql/internal/infrastructure/smtp"
	"github.com/otp-api-nosql/internal/pkg/id"
	"github.com/otp-api-nosql/internal/pkg/otp"
	"github.com/otp-api-nosql/internal/pkg/validate"
)

// Store and delivery calls are I/O against external systems; both get
// their own deadline so a slow collaborator cannot hang a request.
const (
	storeTimeout    = 3 * time.Second
	deliveryTimeout = 10 * time.Second
)

type IssueRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// IssueResult reports a completed issuance. DevOTP carries the plaintext
// code only when the delivery channel is disabled (DevMode); with a
// configured channel the code never appears in a response.
type IssueResult struct {
	Message string
	DevMode bool
	DevOTP  string
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,number"`
}

// VerifyResult reports a successful verification. ProofToken is a
// signed attestation of the verified email, present only when a proof
// signer is configured.
type VerifyResult struct {
	Message    string
	ProofToken string
}

// TokenStore is the narrow persistence contract the services consume.
type TokenStore interface {
	Insert(ctx context.Context, t *domain.VerificationToken) error
	FindByEmailAndCode(ctx context.Context, email, code string) ([]domain.VerificationToken, error)
	Delete(ctx context.Context, tokenID string) error
	// Consume deletes the token only if it still exists and reports
	// whether a record was removed. This is the single-use guard:
	// concurrent verifications of the same token see exactly one true.
	Consume(ctx context.Context, tokenID string) (bool, error)
}

// ProofSigner issues a signed attestation for a verified email.
type ProofSigner interface {
	Sign(email string) (string, error)
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// ServiceDeps bundles the collaborators for NewService.
type ServiceDeps struct {
	Tokens   TokenStore
	Delivery smtp.Channel
	Signer   ProofSigner // optional; nil skips proof tokens
	OTPTTL   time.Duration
}

type service struct {
	tokens   TokenStore
	delivery smtp.Channel
	signer   ProofSigner
	ttl      time.Duration
}

func NewService(deps ServiceDeps) Service {
	ttl := deps.OTPTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{
		tokens:   deps.Tokens,
		delivery: deps.Delivery,
		signer:   deps.Signer,
		ttl:      ttl,
	}
}

// Issue generates a code, persists it bound to the normalized email,
// and attempts delivery once. A persistence failure aborts before any
// delivery attempt; a delivery failure leaves the token persisted and
// usable. Prior outstanding tokens for the same address are left
// untouched, so a resend never invalidates a code already in flight.
func (s *service) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	email := normalizeEmail(req.Email)

	code, err := otp.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}

	now := time.Now().UTC()
	token := &domain.VerificationToken{
		TokenID:   id.New(),
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.tokens.Insert(storeCtx, token); err != nil {
		return nil, fmt.Errorf("store verification token: %w", err)
	}

	if !s.delivery.Configured() {
		slog.Warn("delivery channel disabled, returning code to caller", "email", email)
		return &IssueResult{
			Message: "verification code issued (delivery disabled)",
			DevMode: true,
			DevOTP:  code,
		}, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
	if err := s.delivery.Send(sendCtx, email, subject, body); err != nil {
		// The token stays persisted: only the delivery leg failed and the
		// code remains verifiable if it reached the user another way.
		slog.Error("verification email delivery failed", "email", email, "err", err)
		return nil, fmt.Errorf("send verification email: %v: %w", err, domain.ErrDeliveryFailed)
	}

	return &IssueResult{Message: "verification code sent"}, nil
}

// Verify matches a submitted code against a stored token and consumes
// it. Exactly one of three outcomes is reported per call: success, not
// found (wrapping domain.ErrNotFound), or expired (domain.ErrExpired).
// Shape validation failures never touch the store.
func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	email := normalizeEmail(req.Email)

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	tokens, err := s.tokens.FindByEmailAndCode(storeCtx, email, req.OTP)
	if err != nil {
		return nil, fmt.Errorf("look up verification token: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}

	// Several records can match when the same code was issued twice for
	// one address; the store returns them oldest first and we take the
	// earliest, so the pick is deterministic.
	token := tokens[0]
	now := time.Now().UTC()

	if token.Expired(now) {
		// Consume the expired token so the same code cannot be retried,
		// then report the expiry. A failed delete is logged, not surfaced:
		// the outcome for the caller is "expired" either way.
		delCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if err := s.tokens.Delete(delCtx, token.TokenID); err != nil {
			slog.Warn("failed to delete expired verification token", "token_id", token.TokenID, "err", err)
		}
		return nil, fmt.Errorf("verification code expired: %w", domain.ErrExpired)
	}

	consumeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	removed, err := s.tokens.Consume(consumeCtx, token.TokenID)
	if err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	if !removed {
		// A concurrent verification got there first; for this caller the
		// code no longer exists.
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}

	result := &VerifyResult{Message: "email verified"}
	if s.signer != nil {
		proof, err := s.signer.Sign(email)
		if err != nil {
			slog.Warn("failed to sign verification proof token", "email", email, "err", err)
		} else {
			result.ProofToken = proof
		}
	}
	return result, nil
}

// normalizeEmail lower-cases the address so storage and lookup agree
// regardless of how the caller capitalized it.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
