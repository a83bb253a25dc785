package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStandardToken(t *testing.T) {
	id := uuid.New()
	signed, err := GenerateStandardToken(id)
	require.NoError(t, err)

	token, err := ValidatedToken(signed)
	require.NoError(t, err)
	claims := token.Claims.(*jwt.RegisteredClaims)

	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, JwtIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(AccessTokenDuration), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokensHaveUniqueID(t *testing.T) {
	id := uuid.New()
	a, err := GenerateStandardToken(id)
	require.NoError(t, err)
	b, err := GenerateStandardToken(id)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidatedTokenExpired(t *testing.T) {
	signed, err := GenerateTokenWithDuration(uuid.New(), -time.Minute, JwtIssuer)
	require.NoError(t, err)

	_, err = ValidatedToken(signed)
	var vErr *jwt.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.NotZero(t, vErr.Errors&jwt.ValidationErrorExpired)
}

func TestValidatedTokenWrongKey(t *testing.T) {
	signed, err := GenerateStandardToken(uuid.New())
	require.NoError(t, err)

	SetSecretKey("another-secret")
	defer SetSecretKey("auth-test-secret")

	_, err = ValidatedToken(signed)
	assert.Error(t, err)
}

func TestValidatedTokenRejectNoneAlg(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidatedToken(signed)
	assert.Error(t, err)
}
