package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "service-reservation")

	token, err := m.GenerateToken("operator-1", RoleAdmin, time.Now())
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator-1", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "service-reservation")

	expired, err := m.GenerateToken("operator-1", RoleAdmin, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.Error(t, err, "expired")

	other, err := NewJWTManager("secret", time.Hour, "someone-else").GenerateToken("operator-1", RoleAdmin, time.Now())
	require.NoError(t, err)
	_, err = m.ValidateToken(other)
	assert.Error(t, err, "wrong issuer")

	forged, err := NewJWTManager("other-secret", time.Hour, "service-reservation").GenerateToken("operator-1", RoleAdmin, time.Now())
	require.NoError(t, err)
	_, err = m.ValidateToken(forged)
	assert.Error(t, err, "wrong key")

	_, err = m.ValidateToken("not.a.token")
	assert.Error(t, err)
}
