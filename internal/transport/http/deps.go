package http

import (
	"github.com/otp-api-nosql/internal/application/cleanup"
	"github.com/otp-api-nosql/internal/application/verification"
	"github.com/otp-api-nosql/internal/infrastructure/smtp"
)

// TokenRepository is the full store contract the router wires into the
// services; *dynamo.TokenRepo satisfies it.
type TokenRepository interface {
	verification.TokenStore
	cleanup.TokenStore
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Tokens   TokenRepository
	Delivery smtp.Channel
	// Signer is optional: left nil, verification responses simply omit
	// the proof token.
	Signer verification.ProofSigner
}
