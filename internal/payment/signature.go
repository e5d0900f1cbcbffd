package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrBadSignature rejects a webhook delivery before any state is touched.
var ErrBadSignature = errors.New("payment: webhook signature mismatch")

// Sign computes the hex HMAC-SHA256 of the payload under the shared
// webhook secret. Exposed for tests and for local provider stubs.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
