package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// NewSessionToken returns 32 random bytes, URL-safe encoded. It doubles as the session row id.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
