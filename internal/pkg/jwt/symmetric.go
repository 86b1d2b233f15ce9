package jwt

import (
	"errors"
	"fmt"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

const minHS512KeyLen = 64

type HS512 struct {
	cfg    Config
	parser *libJWT.Parser
}

func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < minHS512KeyLen {
		return nil, ErrSigningKeyTooShort
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
		libJWT.WithExpirationRequired(),
		libJWT.WithIssuedAt(),
		libJWT.WithLeeway(cfg.Leeway),
		libJWT.WithTimeFunc(cfg.Clock.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, libJWT.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, libJWT.WithAudience(cfg.Audiences...))
	}

	return &HS512{cfg: cfg, parser: libJWT.NewParser(opts...)}, nil
}

func (h *HS512) Generate(clientID, role string) (string, error) {
	now := h.cfg.Clock.Now()
	claims := Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        h.cfg.UUID.Generate(),
			Subject:   clientID,
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audiences,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(h.cfg.TTL)),
		},
		ClientID: clientID,
		Role:     role,
	}
	if err := claims.Validate(); err != nil {
		return "", fmt.Errorf("jwt: client id and role are required: %w", err)
	}

	return libJWT.NewWithClaims(libJWT.SigningMethodHS512, claims).SignedString(h.cfg.Secret)
}

// Verify returns ErrTokenExpired for stale tokens and wraps ErrInvalidToken
// for every other rejection.
func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := h.parser.ParseWithClaims(token, &claims, func(*libJWT.Token) (any, error) {
		return h.cfg.Secret, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, libJWT.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case errors.Is(err, ErrInvalidToken):
		return Claims{}, ErrInvalidToken
	default:
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
}
