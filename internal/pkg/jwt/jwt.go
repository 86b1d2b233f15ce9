// Package jwt issues and verifies the bearer tokens API clients present. A
// token names the client and the casbin role it acts with.
package jwt

import (
	"context"
	"errors"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

var (
	ErrSigningKeyTooShort = errors.New("jwt: HS512 key must be at least 64 bytes")
	ErrTokenExpired       = errors.New("jwt: token expired")
	ErrInvalidToken       = errors.New("jwt: invalid token")
)

type JWT interface {
	Generate(clientID, role string) (string, error)
	Verify(token string) (Claims, error)
}

type Claims struct {
	libJWT.RegisteredClaims
	ClientID string `json:"client_id"`
	// Role is the casbin subject the client is authorized as.
	Role string `json:"role"`
}

// Validate runs after the registered claims were checked by the parser.
func (c Claims) Validate() error {
	if c.ClientID == "" || c.Role == "" {
		return ErrInvalidToken
	}
	if c.Subject != "" && c.Subject != c.ClientID {
		return ErrInvalidToken
	}
	return nil
}

type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	// Leeway tolerates clock skew between issuer and verifier.
	Leeway time.Duration
	Clock  interface{ Now() time.Time }
	UUID   interface{ Generate() string }
}

type authKey struct{}

// GetAuth returns the verified claims of the request, nil when anonymous.
func GetAuth(ctx context.Context) *Claims {
	if clm, ok := ctx.Value(authKey{}).(Claims); ok {
		return &clm
	}
	return nil
}

func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}
