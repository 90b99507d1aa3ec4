package controllers

import (
	"fmt"
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"instametrics/internal/services"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_ListsAndAudits(t *testing.T) {
	registry := &fakeRegistry{tokens: []models.TokenView{
		{ID: 1, InstagramAccountID: "17841400000000001", AccessToken: "EAAGto...1234", DaysUntilExpiry: 12},
	}}
	auth := &fakeAuth{}
	api, _, _ := newTestApi(registry)
	tc := NewTokenController(api, auth)

	rr := get(tc.Tokens, "/api/token")
	require.Equal(t, http.StatusOK, rr.Code)

	env := decode(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, float64(1), env.Data["count"])
	assert.Equal(t, testClaims.TenantCode, env.Data["tenant_code"])
	token := env.Data["tokens"].([]any)[0].(map[string]any)
	assert.Equal(t, "EAAGto...1234", token["access_token"])
	assert.Equal(t, float64(12), token["days_until_expiry"])
	assert.Equal(t, []string{services.AuditTokenAccess}, auth.audited)
}

func TestTokens_NoneIs404(t *testing.T) {
	registry := &fakeRegistry{tokensErr: fmt.Errorf("no active token for tenant 3: %w", apperrors.ErrNotFound)}
	auth := &fakeAuth{}
	api, _, _ := newTestApi(registry)
	tc := NewTokenController(api, auth)

	rr := get(tc.Tokens, "/api/token")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, decode(t, rr).Success)
	assert.Empty(t, auth.audited)
}
