package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every access token and required when parsing.
const Issuer = "field-booking-backend"

// clockSkew tolerates small clock differences between API replicas.
const clockSkew = 30 * time.Second

// Claims carries the account id and the role it had when the token was issued.
type Claims struct {
	UserID string `json:"-"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 access tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateAccessToken creates a signed JWT for the given user and role.
func (m *JWTManager) GenerateAccessToken(userID string, role Role) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %q", role)
	}
	now := m.now().UTC()

	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign jwt: %w", err)
	}
	return signed, nil
}

// ParseAndValidate verifies signature, issuer, expiry and role, and returns the claims.
func (m *JWTManager) ParseAndValidate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid jwt token")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q in token", claims.Role)
	}

	claims.UserID = claims.Subject
	return claims, nil
}
