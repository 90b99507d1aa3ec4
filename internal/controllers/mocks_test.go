package controllers

import (
	"context"
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/services"
	"instametrics/internal/testutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

var testClaims = &models.Claims{UserID: 7, TenantID: 3, TenantCode: "12345678000199", Role: "admin"}

func testCred() *models.AccountCredential {
	return &models.AccountCredential{
		ID:                 1,
		TenantID:           3,
		InstagramAccountID: "17841400000000001",
		AccessToken:        "EAAGtoken1234",
		ExpiresAt:          time.Now().Add(30 * 24 * time.Hour),
		Active:             true,
	}
}

type fakeRegistry struct {
	services.RegistryServiceInterface
	cred      *models.AccountCredential
	credErr   error
	tokens    []models.TokenView
	tokensErr error
	tenants   []int64
}

func (f *fakeRegistry) ActiveCredential(_ context.Context, tenantID int64) (*models.AccountCredential, error) {
	f.tenants = append(f.tenants, tenantID)
	if f.credErr != nil {
		return nil, f.credErr
	}
	if f.cred == nil {
		return nil, apperrors.ErrNotFound
	}
	return f.cred, nil
}

func (f *fakeRegistry) Tokens(_ context.Context, _ int64) ([]models.TokenView, error) {
	return f.tokens, f.tokensErr
}

type fakeInsights struct {
	mu       sync.Mutex
	account  models.Result[models.AccountInsights]
	posts    models.Result[[]models.PostInsights]
	stories  models.Result[[]models.StoryInsights]
	audience models.Result[[]models.AudienceMetric]
	calls    []string
	limits   []int
	metrics  [][]string
}

func (f *fakeInsights) record(op string, limit int, metrics []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	f.limits = append(f.limits, limit)
	f.metrics = append(f.metrics, metrics)
}

func (f *fakeInsights) AccountInsights(_ context.Context, _ *models.AccountCredential, _ string, requested []string) models.Result[models.AccountInsights] {
	f.record("account", 0, requested)
	return f.account
}

func (f *fakeInsights) PostsInsights(_ context.Context, _ *models.AccountCredential, limit int, requested []string) models.Result[[]models.PostInsights] {
	f.record("posts", limit, requested)
	return f.posts
}

func (f *fakeInsights) StoriesInsights(_ context.Context, _ *models.AccountCredential, limit int) models.Result[[]models.StoryInsights] {
	f.record("stories", limit, nil)
	return f.stories
}

func (f *fakeInsights) AudienceInsights(_ context.Context, _ *models.AccountCredential) models.Result[[]models.AudienceMetric] {
	f.record("audience", 0, nil)
	return f.audience
}

type fakeGrowth struct {
	services.GrowthServiceInterface
	followers models.Result[models.FollowersSummary]
	series    models.Result[models.GrowthSeries]
	days      []int
}

func (f *fakeGrowth) Followers(_ context.Context, _ *models.AccountCredential) models.Result[models.FollowersSummary] {
	return f.followers
}

func (f *fakeGrowth) GrowthSeries(_ context.Context, _ string, days int) models.Result[models.GrowthSeries] {
	f.days = append(f.days, days)
	return f.series
}

type fakeAuth struct {
	services.AuthServiceInterface
	result  *models.LoginResult
	err     error
	emails  []string
	audited []string
}

func (f *fakeAuth) Authenticate(_ context.Context, email, _ string) (*models.LoginResult, error) {
	f.emails = append(f.emails, email)
	return f.result, f.err
}

func (f *fakeAuth) Audit(_ context.Context, _ *models.Claims, action, _ string) {
	f.audited = append(f.audited, action)
}

type fakeScheduler struct {
	lastRun time.Time
	running bool
}

func (f *fakeScheduler) Init()                          {}
func (f *fakeScheduler) Stop()                          {}
func (f *fakeScheduler) RunNow(_ context.Context) error { return nil }
func (f *fakeScheduler) LastRun() time.Time             { return f.lastRun }
func (f *fakeScheduler) Running() bool                  { return f.running }

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func newTestApi(registry *fakeRegistry) (*ApiController, *testutil.MockCache, *testutil.MockLogger) {
	cache := testutil.NewMockCache()
	logger := &testutil.MockLogger{}
	return NewApiController(logger, registry, cache), cache, logger
}

// authed attaches testClaims the way the auth middleware does.
func authed(req *http.Request) *http.Request {
	return req.WithContext(providers.ContextWithClaims(req.Context(), testClaims))
}

func get(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler(rr, authed(httptest.NewRequest(http.MethodGet, target, nil)))
	return rr
}

func contextWithClaims(req *http.Request, claims *models.Claims) context.Context {
	return providers.ContextWithClaims(req.Context(), claims)
}
