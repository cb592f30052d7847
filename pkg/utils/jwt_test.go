package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")
	userID := uuid.New()

	token, err := CreateToken(userID, "traveler")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "traveler", claims.Role)
	got, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	SetJWTSecret("first-secret")
	token, err := CreateToken(uuid.New(), "traveler")
	require.NoError(t, err)

	SetJWTSecret("second-secret")
	_, err = ValidateToken(token)

	assert.Error(t, err)
}

func TestClaims_UserUUIDInvalid(t *testing.T) {
	_, err := (&Claims{UserID: "nope"}).UserUUID()

	assert.Error(t, err)
}
