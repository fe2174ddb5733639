// Package token mints and validates the signed identity tokens that carry a
// user id and role between requests. It is transport-agnostic: the HTTP layer
// decides whether the opaque blob rides in a cookie or a bearer header.
package token

import (
	"fmt"
	"strconv"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/policy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "inkwell-api"

// Issuer signs and validates identity tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an Issuer signing with secret, expiring tokens after ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the given user ID and role.
func (i *Issuer) Issue(userID uint, role models.Role) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10), // Subject (user ID as string)
		"role": string(role),
		"iss":  issuerName,
		"exp":  now.Add(i.ttl).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  generateJTI(), // JWT ID (unique identifier)
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// Validate parses and verifies a token string and returns the Identity it
// carries. Every failure mode (bad signature, expiry, malformed claims,
// unknown role) collapses into the same Unauthenticated error so callers
// cannot distinguish why a token was rejected.
func (i *Issuer) Validate(tokenString string) (policy.Identity, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return policy.Identity{}, models.NewUnauthenticatedError("Invalid or expired token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return policy.Identity{}, models.NewUnauthenticatedError("Invalid or expired token")
	}

	subStr, ok := claims["sub"].(string)
	if !ok {
		return policy.Identity{}, models.NewUnauthenticatedError("Invalid or expired token")
	}
	userID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil || userID == 0 {
		return policy.Identity{}, models.NewUnauthenticatedError("Invalid or expired token")
	}

	roleStr, ok := claims["role"].(string)
	role := models.Role(roleStr)
	if !ok || !role.Valid() {
		return policy.Identity{}, models.NewUnauthenticatedError("Invalid or expired token")
	}

	return policy.Identity{ID: uint(userID), Role: role}, nil
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
