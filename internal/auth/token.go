package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskdesk/taskdesk/internal/model"
)

// Claims is the signed payload carried by an access token. It is kept
// deliberately small: no entitlement data, because entitlement can change
// between issuance and use. The request gate re-derives it from live state.
type Claims struct {
	UserID   uint64 `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens. Verify is pure: it
// does no I/O and consults nothing but the signature and the clock.
type TokenIssuer struct {
	secret      []byte
	accessTTL   time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewTokenIssuer builds an issuer. accessTTL applies to ordinary logins,
// rememberTTL to remember-me logins.
func NewTokenIssuer(secret string, accessTTL, rememberTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:      []byte(secret),
		accessTTL:   accessTTL,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// Issue signs a token for the user and returns it with its expiry time.
func (t *TokenIssuer) Issue(u model.User, rememberMe bool) (string, time.Time, error) {
	now := t.now().UTC()
	ttl := t.accessTTL
	if rememberMe {
		ttl = t.rememberTTL
	}
	exp := now.Add(ttl)
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a token. Failures collapse into exactly two
// cases: ErrTokenExpired for a good signature past its expiry, and
// ErrTokenMalformed for everything else (bad signature, wrong algorithm,
// garbage input).
func (t *TokenIssuer) Verify(raw string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}
	if !tok.Valid {
		return Claims{}, ErrTokenMalformed
	}
	return claims, nil
}
