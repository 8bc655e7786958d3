package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	id := uuid.New()

	token, err := GenerateToken(id, KindExporting, "Gulf Seafood", []string{"package:create"}, "v1")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.AccountID)
	assert.Equal(t, KindExporting, claims.Kind)
	assert.Equal(t, []string{"package:create"}, claims.Privileges)
	assert.Equal(t, "v1", claims.TokenVersion)
}

func TestValidateToken_Rejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		token, err := GenerateToken(uuid.New(), KindFarming, "Farm", nil, "v1")
		require.NoError(t, err)

		t.Setenv("JWT_SECRET", "rotated")
		_, err = ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		raw := gojwt.NewWithClaims(gojwt.SigningMethodNone, &Claims{AccountID: uuid.New()})
		token, err := raw.SignedString(gojwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown kind", func(t *testing.T) {
		raw := gojwt.NewWithClaims(gojwt.SigningMethodHS256, &Claims{
			AccountID: uuid.New(),
			Kind:      "admin",
			RegisteredClaims: gojwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		token, err := raw.SignedString(GetSecretKey())
		require.NoError(t, err)

		_, err = ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		raw := gojwt.NewWithClaims(gojwt.SigningMethodHS256, &Claims{
			AccountID:        uuid.New(),
			Kind:             KindOperator,
			RegisteredClaims: gojwt.RegisteredClaims{Issuer: "elsewhere"},
		})
		token, err := raw.SignedString(GetSecretKey())
		require.NoError(t, err)

		_, err = ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGenerateToken_RejectsUnknownKind(t *testing.T) {
	_, err := GenerateToken(uuid.New(), "admin", "Someone", nil, "v1")
	assert.ErrorIs(t, err, ErrInvalidKind)
	assert.True(t, KindOperator.Valid())
	assert.False(t, Kind("").Valid())
}
