// Package auth verifies session tokens issued by the identity provider.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/project-management-api/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the provider session claims the API relies on. Subject is the
// user id; OrgID is the active organization, if any.
type Claims struct {
	OrgID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	UserID      string
	ActiveOrgID string
}

type Verifier struct {
	method jwt.SigningMethod
	key    interface{}
	issuer string
}

// NewVerifier uses the RS256 public key when one is configured and the HS256
// secret otherwise.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	v := &Verifier{issuer: cfg.Issuer}

	switch {
	case cfg.JWTPublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse auth public key: %w", err)
		}
		v.method, v.key = jwt.SigningMethodRS256, key
	case cfg.JWTSecret != "":
		v.method, v.key = jwt.SigningMethodHS256, []byte(cfg.JWTSecret)
	default:
		return nil, errors.New("no auth key configured")
	}

	return v, nil
}

// NewRSAVerifier builds a verifier around an already parsed key.
func NewRSAVerifier(key *rsa.PublicKey, issuer string) *Verifier {
	return &Verifier{method: jwt.SigningMethodRS256, key: key, issuer: issuer}
}

func (v *Verifier) Verify(tokenStr string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{UserID: claims.Subject, ActiveOrgID: claims.OrgID}, nil
}
