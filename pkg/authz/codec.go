package authz

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = 48 * time.Hour

// Claims is the identity payload carried by an issued token.
type Claims struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// Codec signs and verifies workflow tokens with a shared HMAC secret.
// The secret is injected here, never read from ambient process state, so
// tests and rotation can swap it without restarting.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec builds a codec for the given shared secret. A non-positive ttl
// falls back to DefaultTokenTTL.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token codec requires a signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

// Encode signs the claims with HS256 and an expiry ttl from now.
func (c *Codec) Encode(claims Claims) (string, error) {
	now := time.Now().UTC()
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    claims.ID,
		"name":  claims.Name,
		"email": claims.Email,
		"roles": roles,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(c.ttl)),
		"jti":   uuid.NewString(),
	})
	return token.SignedString(c.secret)
}

// Decode verifies the signature and structure and returns the raw claims.
// Registered-claim validation is deliberately skipped: the guard checks
// expiry and roles itself so each failure gets its own error.
func (c *Codec) Decode(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
