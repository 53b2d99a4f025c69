// Package auth issues and verifies the bearer credentials used by the marketplace API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/marketplace/pkg/config"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// ErrInvalidToken is returned for any credential that cannot be trusted.
var ErrInvalidToken = errors.New("invalid token")

// Issuer mints signed credentials for authenticated users.
type Issuer interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
}

// HMACAuthority signs and verifies HS256 tokens with a shared secret.
// The subject claim carries the user id.
type HMACAuthority struct {
	key    jwk.Key
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACAuthority builds an authority from the token configuration.
func NewHMACAuthority(cfg config.TokenConfig) (*HMACAuthority, error) {
	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to import signing key: %w", err)
	}
	return &HMACAuthority{
		key:    key,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue returns a compact serialized token for userID.
func (a *HMACAuthority) Issue(_ context.Context, userID uuid.UUID) (string, error) {
	now := a.now()
	token, err := jwt.NewBuilder().
		Subject(userID.String()).
		Issuer(a.issuer).
		JwtID(uuid.NewString()).
		IssuedAt(now).
		Expiration(now.Add(a.ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), a.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

func (a *HMACAuthority) Verify(_ context.Context, tokenString string) (jwt.Token, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), a.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(a.issuer),
		jwt.WithClock(jwt.ClockFunc(a.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return token, nil
}

// Subject verifies the token and returns the user id it was issued for.
func (a *HMACAuthority) Subject(ctx context.Context, tokenString string) (uuid.UUID, error) {
	token, err := a.Verify(ctx, tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	subject, ok := token.Subject()
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: no claim `sub`", ErrInvalidToken)
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return userID, nil
}
