package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.GenerateAccessToken("0b8f6c1e-7a53-4c55-9a4e-3f0f0c1d2e3f", RoleAdmin)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "0b8f6c1e-7a53-4c55-9a4e-3f0f0c1d2e3f", claims.VisitorID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).GenerateAccessToken("v1", RoleVisitor)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestManager_RejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	token, err := m.GenerateAccessToken("v1", RoleVisitor)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}
