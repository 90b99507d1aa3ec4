package services

import (
	"context"
	"fmt"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
	"instametrics/internal/catalog"
	"instametrics/internal/graph"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/structures"
	"strings"
)

const (
	DefaultPeriod   = "day"
	LifetimePeriod  = "lifetime"
	EngagementRate  = "engagement_rate"
	ReachRate       = "reach_rate"
	defaultParallel = 1
)

var engagementMetrics = []string{"likes", "comments", "shares", "saves"}

// FallbackAccountInsights is served when the account insights call fails.
func FallbackAccountInsights() models.AccountInsights {
	return models.AccountInsights{
		"accounts_reached": 2500,
		"accounts_engaged": 350,
		"follower_count":   10250,
		"profile_activity": 125,
		"content_activity": 280,
		EngagementRate:     14.0,
		ReachRate:          24.4,
	}
}

type InsightServiceInterface interface {
	AccountInsights(ctx context.Context, cred *models.AccountCredential, period string, metrics []string) models.Result[models.AccountInsights]
	PostsInsights(ctx context.Context, cred *models.AccountCredential, limit int, metrics []string) models.Result[[]models.PostInsights]
	StoriesInsights(ctx context.Context, cred *models.AccountCredential, limit int) models.Result[[]models.StoryInsights]
	AudienceInsights(ctx context.Context, cred *models.AccountCredential) models.Result[[]models.AudienceMetric]
}

type InsightService struct {
	client      graph.ClientInterface
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
	maxParallel int
}

func NewInsightService(conf *structures.Config, client graph.ClientInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) InsightServiceInterface {
	parallel := conf.Aggregator.MaxParallel
	if parallel <= 0 {
		parallel = defaultParallel
	}
	return &InsightService{client: client, logger: logger, metrics: metrics, maxParallel: parallel}
}

func (s *InsightService) validate(requested []string, entity models.EntityType) ([]string, error) {
	metrics, warnings, err := catalog.MustValidate(requested, entity)
	for _, w := range warnings {
		s.logger.Warnf(providers.TypeUpstream, "%s", w)
	}
	return metrics, err
}

// degrade records a fallback so it never looks like a real success.
func (s *InsightService) degrade(op string, err error) string {
	reason := fmt.Sprintf("%s: %s", graph.Classify(err), err)
	if graph.IsTokenExpired(err) {
		s.logger.Warnf(providers.TypeUpstream, "%s degraded, access token needs refresh: %s", op, err)
	} else {
		s.logger.Warnf(providers.TypeUpstream, "%s degraded: %s", op, err)
	}
	s.metrics.IncDegraded(op)
	return reason
}

func defaultAccountMetrics() []string {
	var out []string
	for _, m := range catalog.Metrics(models.EntityAccount) {
		if !catalog.IsDemographic(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *InsightService) AccountInsights(ctx context.Context, cred *models.AccountCredential, period string, requested []string) models.Result[models.AccountInsights] {
	if len(requested) == 0 {
		requested = defaultAccountMetrics()
	}
	metrics, err := s.validate(requested, models.EntityAccount)
	if err != nil {
		return models.Fail[models.AccountInsights](err)
	}

	out := models.AccountInsights{}
	for _, q := range accountQueries(metrics, period) {
		series, err := s.client.AccountInsights(ctx, cred.InstagramAccountID, cred.AccessToken, q)
		if err != nil {
			return models.Degraded(FallbackAccountInsights(), s.degrade("account_insights", err))
		}
		for _, ser := range series {
			if len(ser.Values) == 0 {
				continue
			}
			v, err := cast.ToFloat64E(ser.Values[0].Value)
			if err != nil {
				s.logger.Debugf(providers.TypeUpstream, "metric %s has non-numeric value, skipped", ser.Name)
				continue
			}
			out[ser.Name] = v
		}
	}
	out[EngagementRate] = percent(out["accounts_engaged"], out["accounts_reached"])
	out[ReachRate] = percent(out["accounts_reached"], out["follower_count"])
	return models.Ok(out)
}

// accountQueries splits metrics into one query per upstream mode: plain time
// series at period, total_value metrics and lifetime demographics. Empty
// groups are skipped and the order is fixed.
func accountQueries(metrics []string, period string) []graph.InsightQuery {
	if period == "" {
		period = DefaultPeriod
	}
	var series, totals, demographics []string
	for _, m := range metrics {
		switch {
		case catalog.IsDemographic(m):
			demographics = append(demographics, m)
		case catalog.QueryMode(m) != "":
			totals = append(totals, m)
		default:
			series = append(series, m)
		}
	}

	var out []graph.InsightQuery
	if len(series) > 0 {
		out = append(out, graph.InsightQuery{Metrics: series, Period: period})
	}
	if len(totals) > 0 {
		out = append(out, graph.InsightQuery{Metrics: totals, Period: period, MetricType: "total_value"})
	}
	if len(demographics) > 0 {
		out = append(out, graph.InsightQuery{Metrics: demographics, Period: LifetimePeriod})
	}
	return out
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// firstValues maps each series name to its first numeric value.
func firstValues(series []models.InsightSeries) map[string]float64 {
	out := make(map[string]float64, len(series))
	for _, ser := range series {
		if len(ser.Values) == 0 {
			continue
		}
		out[ser.Name] = cast.ToFloat64(ser.Values[0].Value)
	}
	return out
}

func PostEngagementRate(series []models.InsightSeries) float64 {
	values := firstValues(series)
	var engaged float64
	for _, m := range engagementMetrics {
		engaged += values[m]
	}
	return percent(engaged, values["reach"])
}

func StoryCompletionRate(series []models.InsightSeries) float64 {
	values := firstValues(series)
	return percent(values["reach"]-values["exits"], values["reach"])
}

// fanOut runs fn for every item with at most limit calls in flight.
// Results keep the order of items and one failure never cancels the rest.
func fanOut[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) R) []R {
	out := make([]R, len(items))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			out[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func mediaEntity(mediaType string) models.EntityType {
	switch strings.ToUpper(mediaType) {
	case "VIDEO", "REELS":
		return models.EntityVideo
	default:
		return models.EntityPost
	}
}

type itemOutcome[T any] struct {
	value  T
	failed bool
}

func (s *InsightService) PostsInsights(ctx context.Context, cred *models.AccountCredential, limit int, requested []string) models.Result[[]models.PostInsights] {
	if len(requested) == 0 {
		requested = catalog.Metrics(models.EntityPost)
	}
	postMetrics, err := s.validate(requested, models.EntityPost)
	if err != nil {
		return models.Fail[[]models.PostInsights](err)
	}
	// video items fall back to the post set when nothing requested applies to them
	videoMetrics, _, videoErr := catalog.MustValidate(requested, models.EntityVideo)
	if videoErr != nil {
		videoMetrics = postMetrics
	}

	items, err := s.client.MediaList(ctx, cred.InstagramAccountID, cred.AccessToken, limit)
	if err != nil {
		return models.Degraded([]models.PostInsights{}, s.degrade("posts_insights", err))
	}

	results := fanOut(ctx, s.maxParallel, items, func(ctx context.Context, item models.MediaItem) itemOutcome[models.PostInsights] {
		metrics := postMetrics
		if mediaEntity(item.MediaType) == models.EntityVideo {
			metrics = videoMetrics
		}
		post := models.PostInsights{MediaItem: item, Insights: []models.InsightSeries{}}
		series, err := s.client.MediaInsights(ctx, item.ID, cred.AccessToken, metrics)
		if err != nil {
			s.logger.Warnf(providers.TypeUpstream, "insights for post %s failed: %s", item.ID, err)
			return itemOutcome[models.PostInsights]{value: post, failed: true}
		}
		post.Insights = append(post.Insights, series...)
		post.EngagementRate = PostEngagementRate(series)
		return itemOutcome[models.PostInsights]{value: post}
	})

	posts, failed := unwrapOutcomes(results)
	if failed > 0 {
		s.metrics.IncDegraded("post_insights")
		return models.Degraded(posts, fmt.Sprintf("%d of %d post insight calls failed", failed, len(posts)))
	}
	return models.Ok(posts)
}

func (s *InsightService) StoriesInsights(ctx context.Context, cred *models.AccountCredential, limit int) models.Result[[]models.StoryInsights] {
	metrics := catalog.Metrics(models.EntityStory)

	items, err := s.client.Stories(ctx, cred.InstagramAccountID, cred.AccessToken, limit)
	if err != nil {
		return models.Degraded([]models.StoryInsights{}, s.degrade("stories_insights", err))
	}

	results := fanOut(ctx, s.maxParallel, items, func(ctx context.Context, item models.MediaItem) itemOutcome[models.StoryInsights] {
		story := models.StoryInsights{ID: item.ID, MediaType: item.MediaType, Timestamp: item.Timestamp, Insights: []models.InsightSeries{}}
		series, err := s.client.MediaInsights(ctx, item.ID, cred.AccessToken, metrics)
		if err != nil {
			s.logger.Warnf(providers.TypeUpstream, "insights for story %s failed: %s", item.ID, err)
			return itemOutcome[models.StoryInsights]{value: story, failed: true}
		}
		story.Insights = append(story.Insights, series...)
		story.CompletionRate = StoryCompletionRate(series)
		return itemOutcome[models.StoryInsights]{value: story}
	})

	stories, failed := unwrapOutcomes(results)
	if failed > 0 {
		s.metrics.IncDegraded("story_insights")
		return models.Degraded(stories, fmt.Sprintf("%d of %d story insight calls failed", failed, len(stories)))
	}
	return models.Ok(stories)
}

func unwrapOutcomes[T any](results []itemOutcome[T]) ([]T, int) {
	out := make([]T, len(results))
	failed := 0
	for i, r := range results {
		out[i] = r.value
		if r.failed {
			failed++
		}
	}
	return out, failed
}

func (s *InsightService) AudienceInsights(ctx context.Context, cred *models.AccountCredential) models.Result[[]models.AudienceMetric] {
	series, err := s.client.AccountInsights(ctx, cred.InstagramAccountID, cred.AccessToken, graph.InsightQuery{
		Metrics: catalog.DemographicMetrics,
		Period:  LifetimePeriod,
	})
	if err != nil {
		return models.Degraded([]models.AudienceMetric{}, s.degrade("audience_insights", err))
	}

	byName := make(map[string]models.InsightSeries, len(series))
	for _, ser := range series {
		byName[ser.Name] = ser
	}

	out := make([]models.AudienceMetric, 0, len(catalog.DemographicMetrics))
	for _, name := range catalog.DemographicMetrics {
		ser, ok := byName[name]
		if !ok || len(ser.Values) == 0 {
			continue
		}
		out = append(out, models.AudienceMetric{Name: name, Values: ser.Values[:1]})
	}
	return models.Ok(out)
}
