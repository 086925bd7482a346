// Package webhook receives provider webhook deliveries: it verifies their
// signatures, parses messaging events, and routes each inbound message
// through classification, conversation state, and the order pipeline.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// request body. The comparison is constant time; any malformed header is a
// plain reject, never a panic.
func VerifySignature(appSecret, rawBody []byte, header string) bool {
	if len(appSecret) == 0 {
		return false
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}

	provided, err := hex.DecodeString(header[len(signaturePrefix):])
	if err != nil {
		return false
	}
	if len(provided) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, appSecret)
	mac.Write(rawBody)
	return hmac.Equal(provided, mac.Sum(nil))
}
