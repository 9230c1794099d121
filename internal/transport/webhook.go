package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrSignatureMismatch is returned when an inbound webhook's signature
// is missing or does not match the expected HMAC.
var ErrSignatureMismatch = errors.New("webhook signature missing or mismatched")

// WebhookVerifier checks inbound third-party webhook payloads (e.g.
// sensor vendor callbacks, camera event pushes) against an
// HMAC-SHA256 signature computed over the raw request body, the same
// scheme the pack's webhook registry uses to sign outbound payloads.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier builds a verifier keyed on secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Sign computes the hex-encoded HMAC-SHA256 signature for body.
func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature (as received in the webhook's signature
// header) against the HMAC computed over body, in constant time.
// A missing or mismatched signature is rejected with
// ErrSignatureMismatch.
func (v *WebhookVerifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return ErrSignatureMismatch
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	computed := mac.Sum(nil)

	if !hmac.Equal(expected, computed) {
		return ErrSignatureMismatch
	}
	return nil
}
