package services

import (
	"context"
	"errors"
	"instametrics/internal/graph"
	"instametrics/internal/models"
	"instametrics/internal/structures"
	"net/url"
	"sort"
	"sync"
	"time"
)

var errUpstreamDown = &graph.TransportError{Op: "test", Cause: errors.New("connection refused")}

type fakeGraph struct {
	mu sync.Mutex

	accountInsights func(q graph.InsightQuery) ([]models.InsightSeries, error)
	mediaList       func(limit int) ([]models.MediaItem, error)
	stories         func(limit int) ([]models.MediaItem, error)
	mediaInsights   func(mediaID string, metrics []string) ([]models.InsightSeries, error)
	profile         func(accountID, token string) (*graph.Profile, error)
	exchange        func(token string) (*models.ExchangedToken, error)

	queries    []graph.InsightQuery
	mediaCalls []string
}

func (f *fakeGraph) Get(context.Context, string, url.Values) (map[string]any, error) {
	return map[string]any{}, nil
}

func (f *fakeGraph) Post(context.Context, string, url.Values) (map[string]any, error) {
	return map[string]any{}, nil
}

func (f *fakeGraph) AccountInsights(_ context.Context, _, _ string, q graph.InsightQuery) ([]models.InsightSeries, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.accountInsights(q)
}

func (f *fakeGraph) MediaList(_ context.Context, _, _ string, limit int) ([]models.MediaItem, error) {
	return f.mediaList(limit)
}

func (f *fakeGraph) Stories(_ context.Context, _, _ string, limit int) ([]models.MediaItem, error) {
	return f.stories(limit)
}

func (f *fakeGraph) MediaInsights(_ context.Context, mediaID, _ string, metrics []string) ([]models.InsightSeries, error) {
	f.mu.Lock()
	f.mediaCalls = append(f.mediaCalls, mediaID)
	f.mu.Unlock()
	return f.mediaInsights(mediaID, metrics)
}

func (f *fakeGraph) Profile(_ context.Context, accountID, token string) (*graph.Profile, error) {
	return f.profile(accountID, token)
}

func (f *fakeGraph) ExchangeToken(_ context.Context, token string) (*models.ExchangedToken, error) {
	return f.exchange(token)
}

func series(name string, value any) models.InsightSeries {
	return models.InsightSeries{Name: name, Period: "day", Values: []models.SeriesValue{{Value: value, EndTime: "2026-10-13T07:00:00+0000"}}}
}

type fakeHistory struct {
	mu        sync.Mutex
	snapshots map[string]models.FollowerSnapshot
	listErr   error
	upsertErr error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{snapshots: make(map[string]models.FollowerSnapshot)}
}

func (h *fakeHistory) key(accountID string, d time.Time) string {
	return accountID + "/" + d.Format(models.DateLayout)
}

func (h *fakeHistory) Upsert(_ context.Context, s models.FollowerSnapshot) error {
	if h.upsertErr != nil {
		return h.upsertErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshots[h.key(s.AccountID, s.Date)] = s
	return nil
}

func (h *fakeHistory) ListSince(_ context.Context, accountID string, since time.Time, limit int) ([]models.FollowerSnapshot, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.FollowerSnapshot, 0)
	for _, s := range h.snapshots {
		if s.AccountID == accountID && !s.Date.Before(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *fakeHistory) Get(_ context.Context, accountID string, d time.Time) (*models.FollowerSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.snapshots[h.key(accountID, d)]
	if !ok {
		return nil, errors.New("not found")
	}
	return &s, nil
}

func (h *fakeHistory) OlderThan(context.Context, time.Time) ([]models.FollowerSnapshot, error) {
	return nil, nil
}

func (h *fakeHistory) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func testConfig() *structures.Config {
	return &structures.Config{
		JWT:        structures.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", TTL: 7 * 24 * time.Hour},
		Aggregator: structures.AggregatorConfig{MaxParallel: 1, DefaultLimit: 25},
		Graph:      structures.GraphConfig{AppID: "app", AppSecret: "secret"},
	}
}

func testCredential() *models.AccountCredential {
	return &models.AccountCredential{ID: 1, TenantID: 1, InstagramAccountID: "17841400000", AccessToken: "tok", Active: true}
}
