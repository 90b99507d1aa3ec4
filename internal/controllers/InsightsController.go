package controllers

import (
	"fmt"
	"instametrics/internal/apperrors"
	"instametrics/internal/catalog"
	"instametrics/internal/models"
	"instametrics/internal/services"
	"instametrics/internal/structures"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	InsightsAccount  = "account"
	InsightsPosts    = "posts"
	InsightsStories  = "stories"
	InsightsAudience = "audience"

	defaultInsightsLimit = 25
)

type InsightsController struct {
	*ApiController
	insights     services.InsightServiceInterface
	defaultLimit int
	now          func() time.Time
}

func NewInsightsController(api *ApiController, insights services.InsightServiceInterface, conf *structures.Config) *InsightsController {
	limit := conf.Aggregator.DefaultLimit
	if limit <= 0 {
		limit = defaultInsightsLimit
	}
	return &InsightsController{
		ApiController: api,
		insights:      insights,
		defaultLimit:  clampLimit(limit),
		now:           time.Now,
	}
}

type insightsResponse struct {
	Type      string `json:"type"`
	Insights  any    `json:"insights,omitempty"`
	Posts     any    `json:"posts,omitempty"`
	Stories   any    `json:"stories,omitempty"`
	Period    string `json:"period,omitempty"`
	Count     int    `json:"count"`
	Limit     int    `json:"limit,omitempty"`
	Timestamp string `json:"timestamp"`
	statusPayload
}

// accountSeries reshapes flattened account values into the upstream
// {name, values:[{value, end_time}]} list, ordered by name.
func accountSeries(data models.AccountInsights, at time.Time) []models.InsightSeries {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	endTime := at.Format(time.RFC3339)
	out := make([]models.InsightSeries, 0, len(names))
	for _, name := range names {
		out = append(out, models.InsightSeries{
			Name:   name,
			Values: []models.SeriesValue{{Value: data[name], EndTime: endTime}},
		})
	}
	return out
}

// Insights serves GET /api/insights?type=account|posts|stories|audience.
func (ic *InsightsController) Insights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := strings.TrimSpace(q.Get("type"))
	switch kind {
	case InsightsAccount, InsightsPosts, InsightsStories, InsightsAudience:
	default:
		ic.writeError(w, r, apperrors.NewValidationError("type must be one of account, posts, stories, audience"))
		return
	}

	period := strings.TrimSpace(q.Get("period"))
	if period == "" {
		period = services.DefaultPeriod
	}
	if period != services.DefaultPeriod && period != services.LifetimePeriod {
		ic.writeError(w, r, apperrors.NewValidationError("period must be day or lifetime, got %q", period))
		return
	}
	limit, err := queryInt(r, "limit", ic.defaultLimit)
	if err != nil {
		ic.writeError(w, r, err)
		return
	}
	limit = clampLimit(limit)
	metrics := catalog.ParseList(q.Get("metrics"))

	claims, cred, ok := ic.credential(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	cacheKey := fmt.Sprintf("insights:%d:%s:%s:%d:%s", claims.TenantID, kind, period, limit, strings.Join(metrics, ","))
	ic.serveFromCacheOrCompute(w, r, cacheKey, func() (any, bool, error) {
		resp := insightsResponse{Type: kind, Timestamp: ic.now().Format(time.RFC3339)}

		switch kind {
		case InsightsAccount:
			res := ic.insights.AccountInsights(ctx, cred, period, metrics)
			if res.IsErr() {
				return nil, false, res.Err
			}
			series := accountSeries(res.Data, ic.now())
			resp.Insights, resp.Count, resp.Period = series, len(series), period
			resp.statusPayload = resultStatus(res)
			return resp, res.IsOk(), nil

		case InsightsPosts:
			res := ic.insights.PostsInsights(ctx, cred, limit, metrics)
			if res.IsErr() {
				return nil, false, res.Err
			}
			resp.Posts, resp.Count, resp.Limit = res.Data, len(res.Data), limit
			resp.statusPayload = resultStatus(res)
			return resp, res.IsOk(), nil

		case InsightsStories:
			res := ic.insights.StoriesInsights(ctx, cred, limit)
			if res.IsErr() {
				return nil, false, res.Err
			}
			resp.Stories, resp.Count, resp.Limit = res.Data, len(res.Data), limit
			resp.statusPayload = resultStatus(res)
			return resp, res.IsOk(), nil

		default:
			res := ic.insights.AudienceInsights(ctx, cred)
			if res.IsErr() {
				return nil, false, res.Err
			}
			resp.Insights, resp.Count = res.Data, len(res.Data)
			resp.statusPayload = resultStatus(res)
			return resp, res.IsOk(), nil
		}
	})
}
