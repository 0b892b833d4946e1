package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	refreshTokenBytes = 32
	sessionIDBytes    = 16
)

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewRefreshToken mints the opaque token stored in redis and handed to the
// client. Never a JWT; revocation is a key delete.
func NewRefreshToken() (string, error) {
	return randomHex(refreshTokenBytes)
}

func NewSessionID() (string, error) {
	return randomHex(sessionIDBytes)
}
