// Package attendance issues and verifies the payload behind class check-in QR codes.
//
// A teacher opens a check-in window for a class: a fresh numeric code is kept
// in the CodeStore for the window and a signed token naming the class and code
// is handed out for rendering as a QR image. A scanned token is accepted only
// while its code is still the live one for that class.
package attendance

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidTicket = errors.New("invalid_ticket")
	ErrCodeExpired   = errors.New("code_expired")
)

type Claims struct {
	ClassID string `json:"class_id"`
	Code    string `json:"code"`
	jwt.RegisteredClaims
}

type Ticket struct {
	Token     string    `json:"token"`
	ClassID   string    `json:"classId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	codes  CodeStore
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration, codes CodeStore) *Issuer {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		codes:  codes,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue replaces the live code of classID and returns a token for it.
func (i *Issuer) Issue(ctx context.Context, classID string) (Ticket, error) {
	code, err := randomCode()
	if err != nil {
		return Ticket{}, err
	}
	if err := i.codes.Put(ctx, classID, code, i.ttl); err != nil {
		return Ticket{}, fmt.Errorf("store code: %w", err)
	}
	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		ClassID: classID,
		Code:    code,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   classID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{Token: token, ClassID: classID, ExpiresAt: expires}, nil
}

// Parse checks the token signature, issuer and expiry.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCodeExpired
		}
		return nil, ErrInvalidTicket
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ClassID == "" || claims.Code == "" {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}

// Redeem confirms that the code inside claims is still live for its class.
func (i *Issuer) Redeem(ctx context.Context, claims *Claims) error {
	live, ok, err := i.codes.Get(ctx, claims.ClassID)
	if err != nil {
		return err
	}
	if !ok || subtle.ConstantTimeCompare([]byte(live), []byte(claims.Code)) != 1 {
		return ErrCodeExpired
	}
	return nil
}

func randomCode() (string, error) {
	value, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", value.Int64()), nil
}
