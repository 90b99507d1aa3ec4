package controllers

import (
	"fmt"
	"instametrics/internal/models"
	"instametrics/internal/services"
	"net/http"
)

type FollowersController struct {
	*ApiController
	growth services.GrowthServiceInterface
}

func NewFollowersController(api *ApiController, growth services.GrowthServiceInterface) *FollowersController {
	return &FollowersController{ApiController: api, growth: growth}
}

type followersResponse struct {
	models.FollowersSummary
	statusPayload
}

type growthResponse struct {
	models.GrowthSeries
	statusPayload
}

// Followers serves GET /api/followers.
func (fc *FollowersController) Followers(w http.ResponseWriter, r *http.Request) {
	claims, cred, ok := fc.credential(w, r)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("followers:%d:%s", claims.TenantID, cred.InstagramAccountID)
	fc.serveFromCacheOrCompute(w, r, cacheKey, func() (any, bool, error) {
		res := fc.growth.Followers(r.Context(), cred)
		if res.IsErr() {
			return nil, false, res.Err
		}
		return followersResponse{FollowersSummary: res.Data, statusPayload: resultStatus(res)}, res.IsOk(), nil
	})
}

// Growth serves GET /api/followers/growth?days=30.
func (fc *FollowersController) Growth(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", services.DefaultGrowthDays)
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	days = services.ClampDays(days)

	claims, cred, ok := fc.credential(w, r)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("growth:%d:%s:%d", claims.TenantID, cred.InstagramAccountID, days)
	fc.serveFromCacheOrCompute(w, r, cacheKey, func() (any, bool, error) {
		res := fc.growth.GrowthSeries(r.Context(), cred.InstagramAccountID, days)
		if res.IsErr() {
			return nil, false, res.Err
		}
		return growthResponse{GrowthSeries: res.Data, statusPayload: resultStatus(res)}, res.IsOk(), nil
	})
}
