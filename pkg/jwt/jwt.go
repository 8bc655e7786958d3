package jwt

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrInvalidKind  = errors.New("unknown account kind")
)

const (
	issuer        = "shrimp-trace"
	tokenLifetime = 24 * time.Hour
)

// Kind is the account kind a token was issued to.
type Kind string

const (
	KindFarming   Kind = "farming"
	KindExporting Kind = "exporting"
	KindOperator  Kind = "operator"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFarming, KindExporting, KindOperator:
		return true
	}
	return false
}

// Claims carries the session of a company or operator account. TokenVersion
// is rotated on every login so older tokens stop validating.
type Claims struct {
	AccountID    uuid.UUID `json:"account_id"`
	Kind         Kind      `json:"kind"`
	Name         string    `json:"name"`
	Privileges   []string  `json:"privileges"`
	TokenVersion string    `json:"token_version"`
	jwt.RegisteredClaims
}

// GetSecretKey returns the JWT secret from environment or a default
func GetSecretKey() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "your-super-secret-key-change-in-production"
	}
	return []byte(secret)
}

// GenerateToken signs a token for the account. kind must be one of the
// known account kinds.
func GenerateToken(accountID uuid.UUID, kind Kind, name string, privileges []string, tokenVersion string) (string, error) {
	if !kind.Valid() {
		return "", ErrInvalidKind
	}

	now := time.Now()
	claims := &Claims{
		AccountID:    accountID,
		Kind:         kind,
		Name:         name,
		Privileges:   privileges,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(GetSecretKey())
}

// ValidateToken parses tokenString and checks signature, expiry, issuer
// and account kind.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return GetSecretKey(), nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Kind.Valid() || claims.AccountID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
