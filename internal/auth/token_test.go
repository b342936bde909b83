package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementops/ticketing/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	issued := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, expiresAt, err := tm.GenerateToken("u-ca", domain.RoleCareerAssociate)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(30*time.Minute), expiresAt)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-ca", claims.Subject)
	assert.Equal(t, domain.RoleCareerAssociate, claims.Role)
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	issued := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken("u-ca", domain.RoleCareerAssociate)
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(10 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", 5)
	other.now = func() time.Time { return issued }
	_, err = other.ParseToken(token)
	assert.Error(t, err)

	_, err = tm.ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestParseTokenRequiresSubject(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, _, err := tm.GenerateToken("", domain.RoleCOO)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}
