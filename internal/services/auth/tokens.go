package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultTokenTTL is how long an issued token stays valid when no TTL is configured
const DefaultTokenTTL = 7 * 24 * time.Hour

// minSecretLength is the shortest HMAC secret accepted for signing
const minSecretLength = 16

// ErrInvalidToken is returned for tokens that fail signature, issuer or expiry checks
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the fields the API reads from a verified token
type Claims struct {
	UserID    uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 bearer tokens
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer. A zero ttl uses DefaultTokenTTL.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue signs a token for the user
func (ti *TokenIssuer) Issue(userID uuid.UUID, email string) (string, time.Time, error) {
	now := ti.now()
	expires := now.Add(ti.ttl)

	tok, err := jwt.NewBuilder().
		Subject(userID.String()).
		Issuer(ti.issuer).
		IssuedAt(now).
		Expiration(expires).
		JwtID(uuid.NewString()).
		Claim("email", email).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, ti.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), expires, nil
}

// Verify checks the signature, issuer and expiry of a token and extracts its claims
func (ti *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, ti.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(ti.issuer),
		jwt.WithClock(jwt.ClockFunc(ti.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(token.Subject())
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	claims := &Claims{
		UserID:    userID,
		IssuedAt:  token.IssuedAt(),
		ExpiresAt: token.Expiration(),
	}
	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}
	return claims, nil
}
