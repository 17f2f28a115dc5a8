// Package otpcode generates one-time passcodes and derives their stored hashes.
package otpcode

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Digits is the fixed width of every code.
const Digits = 6

const saltBytes = 16

// Generate returns a uniformly random numeric code of Digits characters,
// zero padded (000000-999999).
func Generate() (string, error) {
	code := make([]byte, 0, Digits)
	for i := 0; i < Digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		code = append(code, byte('0'+n.Int64()))
	}
	return string(code), nil
}

// NewSalt returns a random hex salt for one record.
func NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hasher derives code hashes keyed by a server-side secret.
type Hasher struct {
	secret []byte
}

// NewHasher creates a Hasher keyed by secret
func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Hash returns hex(HMAC-SHA256(secret, salt ":" code)).
func (h *Hasher) Hash(salt, code string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(salt))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether code hashes to hash under salt. The comparison runs
// in constant time.
func (h *Hasher) Verify(hash, salt, code string) bool {
	return hmac.Equal([]byte(h.Hash(salt, code)), []byte(hash))
}
