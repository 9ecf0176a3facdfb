// Package identity verifies access tokens minted by the external
// authentication service. memberd never issues, refreshes, or revokes these
// tokens itself; it only checks the signature and lifts out the few claims
// the membership core needs (subject, email, display name, session id).
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid reports a token that failed signature or claim checks.
	ErrTokenInvalid = errors.New("identity: token invalid")
	// ErrTokenExpired reports a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("identity: token expired")
)

// Claims is the authenticated identity as seen by memberd.
type Claims struct {
	UserID    string
	Email     string
	Name      string
	SessionID string
}

type tokenClaims struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens against the shared secret agreed with
// the auth service.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a raw token string. The subject and email
// claims are required; session id and name are optional.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if tc.Subject == "" || tc.Email == "" {
		return Claims{}, ErrTokenInvalid
	}

	return Claims{
		UserID:    tc.Subject,
		Email:     tc.Email,
		Name:      tc.Name,
		SessionID: tc.SessionID,
	}, nil
}

// Signer mints tokens in the same shape the auth service produces. Production
// tokens come from the auth service; this exists for test suites and local
// development where memberd runs without one.
type Signer struct {
	secret []byte
	issuer string
}

func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer}
}

func (s *Signer) Sign(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:     c.Email,
		Name:      c.Name,
		SessionID: c.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}
