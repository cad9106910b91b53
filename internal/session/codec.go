package session

import (
	"time"

	"github.com/gorilla/securecookie"
)

// Codec signs (and, with a block key, encrypts) the session token carried in the cookie.
type Codec struct {
	name string
	sc   *securecookie.SecureCookie
}

func NewCodec(cookieName, hashKey, blockKey string, ttl time.Duration) *Codec {
	var block []byte
	if blockKey != "" {
		block = []byte(blockKey)
	}
	sc := securecookie.New([]byte(hashKey), block)
	if ttl > 0 {
		sc.MaxAge(int(ttl / time.Second))
	}
	return &Codec{name: cookieName, sc: sc}
}

func (c *Codec) Name() string { return c.name }

func (c *Codec) Encode(token string) (string, error) {
	return c.sc.Encode(c.name, token)
}

func (c *Codec) Decode(value string) (string, error) {
	var token string
	if err := c.sc.Decode(c.name, value, &token); err != nil {
		return "", err
	}
	return token, nil
}
