package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidSignature is terminal: the claimed payment proof does not verify
// against the server-held secret. Never retryable.
var ErrInvalidSignature = errors.New("invalid payment signature")

// MaxReceiptLen is the gateway's bound on receipt identifiers.
const MaxReceiptLen = 40

// ExpectedSignature computes the hex HMAC-SHA256 of "orderId|paymentId"
// keyed with the server secret. This recomputation is the only basis for
// trusting a payment-succeeded claim.
func ExpectedSignature(orderId, paymentId, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderId + "|" + paymentId))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a client-supplied signature against the recomputed
// one. Returns ErrInvalidSignature on mismatch.
func VerifySignature(orderId, paymentId, signature, secret string) error {
	expected := ExpectedSignature(orderId, paymentId, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: order %s", ErrInvalidSignature, orderId)
	}
	return nil
}

// NewReceipt builds a gateway receipt from the tail of the book identifier
// and the tail of the current unix-millisecond clock. The fixed format stays
// well inside MaxReceiptLen.
func NewReceipt(bookId string) string {
	return newReceiptAt(bookId, time.Now())
}

func newReceiptAt(bookId string, now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	return "LBR_" + tail(bookId, 6) + "_" + tail(millis, 5)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
