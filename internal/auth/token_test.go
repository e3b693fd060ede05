package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndParse(t *testing.T) {
	svc := NewTokenService("secret", "backoffice", time.Hour)
	token, claims, err := svc.Issue(User{ID: 7, TenantID: 3, Email: "fin@acme.test", Role: "finance"}, []string{"cashflow.view"})
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	parsed, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), parsed.UserID)
	assert.Equal(t, int64(3), parsed.TenantID)
	assert.Equal(t, "7", parsed.Subject)
	assert.Equal(t, []string{"cashflow.view"}, parsed.Permissions)
	assert.Equal(t, claims.ID, parsed.ID)
}

func TestTokenParseRejects(t *testing.T) {
	svc := NewTokenService("secret", "backoffice", time.Hour)
	token, _, err := svc.Issue(User{ID: 1, TenantID: 1}, nil)
	require.NoError(t, err)

	other := NewTokenService("other-secret", "backoffice", time.Hour)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenService("secret", "elsewhere", time.Hour)
	_, err = wrongIssuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	svc := NewTokenService("secret", "backoffice", time.Minute)
	issuedAt := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }
	token, _, err := svc.Issue(User{ID: 1, TenantID: 1}, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenRequiresTenant(t *testing.T) {
	svc := NewTokenService("secret", "backoffice", time.Hour)
	token, _, err := svc.Issue(User{ID: 1}, nil)
	require.NoError(t, err)
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	require.Error(t, err)

	hash, err := HashPassword("long-enough")
	require.NoError(t, err)
	assert.NotEqual(t, "long-enough", hash)
}
