// Package auth guards mutating routes. The operator passphrase is kept only
// as a bcrypt hash and exchanged for a short-lived HS256 token.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classfees/internal/core"
)

const (
	Issuer       = "classfees"
	RoleOperator = "operator"
)

var (
	ErrBadPassphrase = fmt.Errorf("%w: wrong passphrase", core.ErrUnauthorized)
	ErrMissingToken  = fmt.Errorf("%w: missing bearer token", core.ErrUnauthorized)
	ErrInvalidToken  = fmt.Errorf("%w: invalid or expired token", core.ErrUnauthorized)
	ErrForbiddenRole = fmt.Errorf("%w: operator role required", core.ErrUnauthorized)
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks passphrases and issues and verifies tokens.
type Authenticator struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(passphraseHash, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		hash:   []byte(strings.TrimSpace(passphraseHash)),
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// HashPassphrase produces the value for OPERATOR_PASSPHRASE_HASH.
func HashPassphrase(passphrase string) (string, error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", errors.New("passphrase must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(hash), nil
}

// Issue exchanges the operator passphrase for a signed token.
func (a *Authenticator) Issue(passphrase string) (string, time.Time, error) {
	if len(a.hash) == 0 {
		return "", time.Time{}, ErrBadPassphrase
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(passphrase)); err != nil {
		return "", time.Time{}, ErrBadPassphrase
	}

	now := a.now().UTC()
	expires := now.Add(a.ttl)
	claims := Claims{
		Role: RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   RoleOperator,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Verify parses a token and requires the operator role.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleOperator {
		return nil, ErrForbiddenRole
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
