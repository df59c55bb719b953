// Package session verifies the token the backend hands out on sign-in.
// The backend signs it with HMAC and puts the ally code in "sub".
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "quick-swgoh/pkg/common/errors"
)

type Session struct {
	Token     string
	AllyCode  string
	ExpiresAt time.Time
}

type Verifier struct {
	secret []byte
	method string
	now    func() time.Time
}

func NewVerifier(secret, signingMethod string) *Verifier {
	return &Verifier{secret: []byte(secret), method: signingMethod, now: time.Now}
}

// Verify checks signature, algorithm and expiry and returns the session.
func (v *Verifier) Verify(token string) (Session, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{v.method}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: missing sub claim", apperrors.ErrInvalidSession)
	}
	return Session{
		Token:     token,
		AllyCode:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
