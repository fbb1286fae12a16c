package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// LoginTTL is the lifetime of tokens issued at login.
const LoginTTL = 30 * 24 * time.Hour

var (
	// ErrMalformed indicates the token could not be decoded.
	ErrMalformed = errors.New("jwt: malformed token")
	// ErrSignatureInvalid indicates the signature does not match the secret.
	ErrSignatureInvalid = errors.New("jwt: invalid signature")
	// ErrExpired indicates the token is past its expiry instant.
	ErrExpired = errors.New("jwt: token expired")
	// ErrSigning indicates the signing primitive failed.
	ErrSigning = errors.New("jwt: signing failed")
)

// Claims defines the JWT payload: the user id and the expiry (exp).
type Claims struct {
	UserID int64 `json:"id"`
	jwtlib.RegisteredClaims
}

// Authority issues and verifies HS256 tokens with a secret fixed at construction.
type Authority struct {
	secret []byte
	now    func() time.Time
}

// Option customises an Authority.
type Option func(*Authority)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		a.now = now
	}
}

// NewAuthority constructs an Authority. The secret must not be empty.
func NewAuthority(secret string, opts ...Option) (*Authority, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	a := &Authority{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Sign issues a token for userID that expires ttl from now.
func (a *Authority) Sign(userID int64, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(a.now().Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// The returned error is one of ErrMalformed, ErrSignatureInvalid or ErrExpired.
func (a *Authority) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwtlib.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwtlib.ErrTokenSignatureInvalid), errors.Is(err, jwtlib.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
