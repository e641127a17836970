package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix leaves room for a future
// algorithm change.
const (
	DomainKey     = "dts/key/v1"
	DomainMessage = "dts/message/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// KeyDigest returns a short stable digest of a binary key, used as a
// compact identifier in traces and CLI output.
func KeyDigest(binpath []byte) string {
	return hashWithDomain(DomainKey, binpath)[:16]
}

// MessageDigest hashes the canonical encoding of a message body.
func MessageDigest(m *Message) (string, error) {
	b, err := m.Canonical()
	if err != nil {
		return "", fmt.Errorf("MessageDigest: %w", err)
	}
	return hashWithDomain(DomainMessage, b), nil
}
