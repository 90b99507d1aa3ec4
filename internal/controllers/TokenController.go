package controllers

import (
	"fmt"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/services"
	"net/http"
)

type TokenController struct {
	*ApiController
	auth services.AuthServiceInterface
}

func NewTokenController(api *ApiController, auth services.AuthServiceInterface) *TokenController {
	return &TokenController{ApiController: api, auth: auth}
}

type tokensResponse struct {
	TenantCode string             `json:"tenant_code"`
	Tokens     []models.TokenView `json:"tokens"`
	Count      int                `json:"count"`
}

// Tokens serves GET /api/token. Every successful read is audited.
func (tc *TokenController) Tokens(w http.ResponseWriter, r *http.Request) {
	claims, ok := tc.claims(w, r)
	if !ok {
		return
	}

	tokens, err := tc.registry.Tokens(r.Context(), claims.TenantID)
	if err != nil {
		tc.writeError(w, r, err)
		return
	}

	tc.auth.Audit(r.Context(), claims, services.AuditTokenAccess, fmt.Sprintf("listed %d tokens", len(tokens)))
	providers.WriteSuccess(w, http.StatusOK, tokensResponse{TenantCode: claims.TenantCode, Tokens: tokens, Count: len(tokens)})
}
