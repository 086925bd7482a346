package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsValidPair(t *testing.T) {
	secret := []byte("app-secret")
	body := []byte(`{"object":"instagram","entry":[]}`)

	if !VerifySignature(secret, body, sign(secret, body)) {
		t.Fatal("valid signature must verify")
	}
}

func TestVerifySignatureRejectsAnySingleByteMutation(t *testing.T) {
	secret := []byte("app-secret")
	body := []byte(`{"object":"instagram"}`)
	header := sign(secret, body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		if VerifySignature(secret, mutated, header) {
			t.Fatalf("mutated body byte %d must flip the result to reject", i)
		}
	}

	// Mutate each hex digit of the signature itself.
	for i := len(signaturePrefix); i < len(header); i++ {
		mutated := []byte(header)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		if VerifySignature(secret, body, string(mutated)) {
			t.Fatalf("mutated signature char %d must flip the result to reject", i)
		}
	}
}

func TestVerifySignatureRejectsMalformedHeaders(t *testing.T) {
	secret := []byte("app-secret")
	body := []byte("payload")
	valid := sign(secret, body)

	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"missing prefix", valid[len(signaturePrefix):]},
		{"wrong prefix", "sha1=" + valid[len(signaturePrefix):]},
		{"not hex", signaturePrefix + "zz" + valid[len(signaturePrefix)+2:]},
		{"odd length", valid[:len(valid)-1]},
		{"truncated digest", signaturePrefix + "deadbeef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(secret, body, tt.header) {
				t.Errorf("header %q must be rejected", tt.header)
			}
		})
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte("payload")
	if VerifySignature([]byte("other-secret"), body, sign([]byte("app-secret"), body)) {
		t.Fatal("signature from a different secret must be rejected")
	}
	if VerifySignature(nil, body, sign(nil, body)) {
		t.Fatal("empty secret must never verify")
	}
}
