package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound       = errors.New("not found")
	ErrExpired        = errors.New("expired")
	ErrBadRequest     = errors.New("bad request")
	ErrDeliveryFailed = errors.New("delivery failed")
)
