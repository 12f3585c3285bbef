// Package auth is the boundary to the account subsystem. Accounts live
// elsewhere; this package only checks credentials and resolves identities.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/domain"
)

// Verifier validates an opaque user credential and returns the identity
// it was issued to.
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.UserID, error)
}

// Directory resolves identities known to the account subsystem.
type Directory interface {
	Resolve(ctx context.Context, uid domain.UserID) error
}

// JWT verifies HS256 user tokens whose subject is the identity.
type JWT struct {
	secret []byte
	issuer string
}

func NewJWT(secret, issuer string) *JWT {
	return &JWT{secret: []byte(secret), issuer: issuer}
}

func (j *JWT) Verify(_ context.Context, credential string) (domain.UserID, error) {
	if credential == "" {
		return "", apperr.Unauthorizedf("missing credential")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.Unauthorized, err, "invalid credential")
	}
	uid := domain.UserID(claims.Subject)
	if err := uid.Validate(); err != nil {
		return "", apperr.Wrap(apperr.Unauthorized, err, "invalid credential")
	}
	return uid, nil
}

// Issue mints a credential. The account subsystem owns issuance in
// production; this exists for tooling and tests.
func (j *JWT) Issue(uid domain.UserID, ttl time.Duration) (string, error) {
	if err := uid.Validate(); err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   string(uid),
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign: %w", err)
	}
	return signed, nil
}

// OpenDirectory accepts every well-formed identity. Use it when the
// credential verifier is the only account authority.
type OpenDirectory struct{}

func (OpenDirectory) Resolve(_ context.Context, uid domain.UserID) error {
	if err := uid.Validate(); err != nil {
		return apperr.Wrap(apperr.NotFound, err, "unknown user")
	}
	return nil
}

// CheckClaim verifies credential and that it belongs to the claimed identity.
func CheckClaim(ctx context.Context, v Verifier, claimed domain.UserID, credential string) error {
	uid, err := v.Verify(ctx, credential)
	if err != nil {
		return err
	}
	if uid != claimed {
		return apperr.Unauthorizedf("user token mismatch")
	}
	return nil
}
