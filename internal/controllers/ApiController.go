package controllers

import (
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/services"
	"net/http"
	"strconv"
	"strings"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB
	minLimit           = 1
	maxLimit           = 100
)

// ApiController holds what every tenant-scoped handler needs: the caller's
// claims, the tenant's active credential and the response cache.
type ApiController struct {
	logger   providers.Logger
	registry services.RegistryServiceInterface
	cache    providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, registry services.RegistryServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:   logger,
		registry: registry,
		cache:    cache,
	}
}

// statusPayload is merged into every data object backed by a models.Result.
type statusPayload struct {
	Status         models.ResultStatus `json:"status"`
	DegradedReason string              `json:"degraded_reason,omitempty"`
}

func resultStatus[T any](res models.Result[T]) statusPayload {
	return statusPayload{Status: res.Status, DegradedReason: res.Reason}
}

func (ac *ApiController) claims(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := providers.ClaimsFromContext(r.Context())
	if !ok {
		providers.WriteFailure(w, http.StatusUnauthorized, "authentication required")
	}
	return claims, ok
}

// credential resolves the caller's tenant to its active Instagram credential.
func (ac *ApiController) credential(w http.ResponseWriter, r *http.Request) (*models.Claims, *models.AccountCredential, bool) {
	claims, ok := ac.claims(w, r)
	if !ok {
		return nil, nil, false
	}
	cred, err := ac.registry.ActiveCredential(r.Context(), claims.TenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = fmt.Errorf("no active Instagram credential for tenant %s: %w", claims.TenantCode, apperrors.ErrNotFound)
		}
		ac.writeError(w, r, err)
		return nil, nil, false
	}
	return claims, cred, true
}

// serveFromCacheOrCompute caches the whole response envelope. compute
// reports whether its data may be cached; degraded data never is.
func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func() (any, bool, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		providers.WriteRawJSON(w, http.StatusOK, data)
		return
	}

	result, cacheable, err := compute()
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	gson, err := json.Marshal(providers.APIResponse{Success: true, Data: result})
	if err != nil {
		ac.writeError(w, r, err)
		return
	}

	if cacheable {
		ac.cache.Set(cacheKey, gson)
	}
	providers.WriteRawJSON(w, http.StatusOK, gson)
}

// writeError maps application errors to HTTP status codes.
func (ac *ApiController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(ac.logger, w, r, err)
}

func writeError(logger providers.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "internal server error"

	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		status, message = http.StatusBadRequest, ve.Message
	case errors.Is(err, apperrors.ErrBadRequest), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, apperrors.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	}

	logType := providers.GetLogTypeByRequestType(r.Method)
	if status >= http.StatusInternalServerError {
		logger.Errorf(logType, "%s %s failed: %s request_id=%s", r.Method, r.URL.Path, err, providers.RequestIDFromContext(r.Context()))
	} else {
		logger.Debugf(logType, "%s %s rejected with %d: %s", r.Method, r.URL.Path, status, err)
	}
	providers.WriteFailure(w, status, message)
}

// queryInt returns def for a missing parameter and a ValidationError for a
// non-numeric one.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func clampLimit(limit int) int {
	return min(max(limit, minLimit), maxLimit)
}
