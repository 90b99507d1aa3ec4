package controllers

import (
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"instametrics/internal/testutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postLogin(ac *AuthController, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ac.Login(rr, req)
	return rr
}

func TestLogin_Success(t *testing.T) {
	auth := &fakeAuth{result: &models.LoginResult{
		Token:   "jwt-token",
		User:    models.User{ID: 7, Name: "Ana", Email: "ana@acme.com", Role: "admin"},
		Company: models.Tenant{ID: 3, Code: "12345678000199", CompanyName: "Acme"},
	}}
	ac := NewAuthController(&testutil.MockLogger{}, auth)

	rr := postLogin(ac, `{"email":" ana@acme.com ","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	env := decode(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "jwt-token", env.Data["token"])
	user := env.Data["user"].(map[string]any)
	assert.Equal(t, "ana@acme.com", user["email"])
	assert.NotContains(t, user, "password_hash")
	assert.Equal(t, []string{"ana@acme.com"}, auth.emails)
}

func TestLogin_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `email=a`},
		{"empty object", `{}`},
		{"missing password", `{"email":"ana@acme.com"}`},
		{"bad email", `{"email":"ana","password":"secret123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			ac := NewAuthController(&testutil.MockLogger{}, auth)

			rr := postLogin(ac, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			env := decode(t, rr)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Empty(t, auth.emails)
		})
	}
}

func TestLogin_WrongCredentialsIs401(t *testing.T) {
	auth := &fakeAuth{err: apperrors.ErrUnauthorized}
	ac := NewAuthController(&testutil.MockLogger{}, auth)

	rr := postLogin(ac, `{"email":"ana@acme.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestValidate_ReturnsClaims(t *testing.T) {
	ac := NewAuthController(&testutil.MockLogger{}, &fakeAuth{})

	rr := get(ac.Validate, "/api/auth/validate")
	require.Equal(t, http.StatusOK, rr.Code)

	env := decode(t, rr)
	assert.Equal(t, true, env.Data["valid"])
	assert.Equal(t, float64(7), env.Data["user_id"])
	assert.Equal(t, float64(3), env.Data["tenant_id"])
	assert.Equal(t, "admin", env.Data["role"])
}

func TestValidate_WithoutClaims(t *testing.T) {
	ac := NewAuthController(&testutil.MockLogger{}, &fakeAuth{})
	rr := httptest.NewRecorder()
	ac.Validate(rr, httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
