package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	PurposeAccess  = "access"
	PurposeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the signed payload of every envelope. Secret is the opaque value
// whose fingerprint identifies the session server-side.
type Claims struct {
	Secret    string `json:"secret"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenClaims is the caller-supplied part of an envelope.
type TokenClaims struct {
	UserID  uuid.UUID
	Secret  string
	Purpose string
}

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
	method   jwt.SigningMethod
	now      func() time.Time
}

func NewJWTManager(issuer, audience, secret, algorithm string) (*JWTManager, error) {
	method, err := signingMethod(algorithm)
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, errors.New("jwt signing secret is empty")
	}
	return &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(secret),
		method:   method,
		now:      time.Now,
	}, nil
}

func signingMethod(algorithm string) (jwt.SigningMethod, error) {
	switch algorithm {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
}

func (m *JWTManager) Algorithm() string { return m.method.Alg() }

func (m *JWTManager) Encode(tc TokenClaims, ttl time.Duration) (string, error) {
	if tc.Purpose != PurposeAccess && tc.Purpose != PurposeRefresh {
		return "", fmt.Errorf("unknown token purpose %q", tc.Purpose)
	}
	if tc.Secret == "" {
		return "", errors.New("token secret is empty")
	}
	now := m.now()
	claims := Claims{
		Secret:    tc.Secret,
		TokenType: tc.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   tc.UserID.String(),
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
}

// Decode verifies signature, algorithm, expiry and purpose. Expiry failures
// wrap ErrTokenExpired; everything else wraps ErrTokenInvalid.
func (m *JWTManager) Decode(raw, purpose string) (*Claims, error) {
	return m.parse(raw, purpose, true)
}

// DecodeIgnoringExpiry verifies signature, algorithm and purpose but accepts
// envelopes whose exp has passed.
func (m *JWTManager) DecodeIgnoringExpiry(raw, purpose string) (*Claims, error) {
	return m.parse(raw, purpose, false)
}

func (m *JWTManager) parse(raw, purpose string, verifyTime bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if verifyTime {
		opts = append(opts, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience), jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != m.method {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if !verifyTime {
		if claims.Issuer != m.issuer || !audienceContains(claims.Audience, m.audience) {
			return nil, fmt.Errorf("%w: issuer or audience mismatch", ErrTokenInvalid)
		}
	}
	if claims.TokenType != purpose {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrTokenInvalid, claims.TokenType)
	}
	if claims.Secret == "" {
		return nil, fmt.Errorf("%w: missing secret", ErrTokenInvalid)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return claims, nil
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
