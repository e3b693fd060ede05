package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFManagerRoundTrip(t *testing.T) {
	m := NewCSRFManager("csrf-secret")

	token := m.TokenFor("jti-1")
	require.NotEmpty(t, token)
	assert.Equal(t, token, m.TokenFor("jti-1"))
	assert.NoError(t, m.VerifyToken("jti-1", token))
}

func TestCSRFManagerRejects(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	token := m.TokenFor("jti-1")

	assert.ErrorIs(t, m.VerifyToken("jti-1", ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken("", token), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken("jti-2", token), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, NewCSRFManager("other").VerifyToken("jti-1", token), ErrCSRFTokenMismatch)
}

func TestPrincipalHasPermission(t *testing.T) {
	p := &Principal{Permissions: []string{"cashflow.view", "Sales.Edit"}}
	assert.True(t, p.HasPermission("cashflow.view"))
	assert.True(t, p.HasPermission(" sales.edit "))
	assert.False(t, p.HasPermission("tickets.view"))

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasPermission("cashflow.view"))
}
