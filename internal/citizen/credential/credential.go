// Package credential verifies the phone-backed credential minted by the
// external OTP verification provider. The provider proves phone possession
// out-of-band and hands the client a short-lived HMAC-signed JWT whose claims
// this package validates; the portal never sees the OTP itself.
package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "sevasetu/pkg/domain-errors"
)

// Claims are the verified facts carried by the credential.
type Claims struct {
	// Phone is the verified subscriber number, normalized by the issuer.
	Phone string
	// Subject is the issuer-side identifier for the verification event.
	Subject string
}

// Verifier validates credential tokens.
type Verifier struct {
	key []byte
}

func NewVerifier(key string) *Verifier {
	return &Verifier{key: []byte(key)}
}

type credentialClaims struct {
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token, returning its claims. Expired,
// malformed, or wrongly signed tokens fail with CodeUnauthorized.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential is required")
	}

	var claims credentialClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential could not be verified")
	}
	if claims.Phone == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential carries no verified phone")
	}

	return &Claims{Phone: claims.Phone, Subject: claims.Subject}, nil
}

// Issue mints a credential token. Used by tests and the demo login path; in
// production the external provider is the only issuer.
func (v *Verifier) Issue(phone, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := credentialClaims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}
	return signed, nil
}
