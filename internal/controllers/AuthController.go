package controllers

import (
	json "github.com/goccy/go-json"
	"github.com/gookit/validate"
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/services"
	"net/http"
	"strings"
)

type AuthController struct {
	logger providers.Logger
	auth   services.AuthServiceInterface
}

func NewAuthController(logger providers.Logger, auth services.AuthServiceInterface) *AuthController {
	return &AuthController{logger: logger, auth: auth}
}

// Login serves POST /api/auth/login.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ac.logger, w, r, apperrors.NewValidationError("request body must be JSON with email and password"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	v := validate.Struct(&req)
	if !v.Validate() {
		writeError(ac.logger, w, r, apperrors.NewValidationError("%s", v.Errors.One()))
		return
	}

	result, err := ac.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(ac.logger, w, r, err)
		return
	}

	ac.logger.Infof(providers.TypePost, "user %d of tenant %s logged in", result.User.ID, result.Company.Code)
	providers.WriteSuccess(w, http.StatusOK, result)
}

// Validate serves GET /api/auth/validate behind the auth middleware.
func (ac *AuthController) Validate(w http.ResponseWriter, r *http.Request) {
	claims, ok := providers.ClaimsFromContext(r.Context())
	if !ok {
		providers.WriteFailure(w, http.StatusUnauthorized, "authentication required")
		return
	}
	providers.WriteSuccess(w, http.StatusOK, models.ValidateResult{
		Valid:      true,
		UserID:     claims.UserID,
		TenantID:   claims.TenantID,
		TenantCode: claims.TenantCode,
		Role:       claims.Role,
	})
}
