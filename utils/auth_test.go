package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword("s3cret-pass", hash))
	assert.False(t, CheckPassword("wrong-pass", hash))
	assert.False(t, CheckPassword("s3cret-pass", "not-a-hash"))
}

func TestAdminTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-jwt-secret")

	token, err := GenerateAdminToken(7, "admin@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	adminID, err := ValidateAdminToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, adminID)
}

func TestAdminTokenRejectsTampering(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-jwt-secret")
	token, err := GenerateAdminToken(7, "admin@example.com")
	require.NoError(t, err)

	_, err = ValidateAdminToken(token + "x")
	assert.Error(t, err)

	_, err = ValidateAdminToken("not.a.token")
	assert.Error(t, err)

	// A token signed with a different secret must not validate.
	t.Setenv("JWT_SECRET", "other-secret")
	_, err = ValidateAdminToken(token)
	assert.Error(t, err)
}
