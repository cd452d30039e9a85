package domain

import "time"

// VerificationToken binds an email address to a one-time numeric code.
// PK: token_id. The email-code-index GSI (hash: email, range: code)
// serves lookups during verification. ExpiresAt is a Unix timestamp
// also used as the DynamoDB TTL attribute.
//
// No uniqueness is enforced on email or code: several outstanding
// tokens may coexist for the same address, each valid until its own
// expiry or consumption.
type VerificationToken struct {
	TokenID   string    `json:"id" dynamodbav:"token_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Code      string    `json:"code" dynamodbav:"code"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Expired reports whether the token's validity window has passed at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return t.ExpiresAt < now.Unix()
}
