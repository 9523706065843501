package auth

import "errors"

var (
	ErrAddressRequired  = errors.New("Address is required")
	ErrNonceNotFound    = errors.New("Nonce expired or was never issued")
	ErrInvalidSignature = errors.New("Invalid signature")
	ErrNotAuthenticated = errors.New("Not authenticated")
)
