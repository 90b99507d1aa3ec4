// Package graph talks to the Instagram Graph API.
package graph

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/structures"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://graph.facebook.com"
	DefaultVersion = "v19.0"
	DefaultTimeout = 30 * time.Second

	// DefaultTokenLifetime applies when the exchange response omits expires_in.
	DefaultTokenLifetime = 5184000 * time.Second

	maxBodySize = 8 << 20
	breakerName = "graph-api"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type InsightQuery struct {
	Metrics    []string
	Period     string
	MetricType string
	Breakdown  string
	Since      time.Time
	Until      time.Time
}

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ClientInterface interface {
	Get(ctx context.Context, path string, params url.Values) (map[string]any, error)
	Post(ctx context.Context, path string, params url.Values) (map[string]any, error)
	AccountInsights(ctx context.Context, accountID, token string, q InsightQuery) ([]models.InsightSeries, error)
	MediaList(ctx context.Context, accountID, token string, limit int) ([]models.MediaItem, error)
	Stories(ctx context.Context, accountID, token string, limit int) ([]models.MediaItem, error)
	MediaInsights(ctx context.Context, mediaID, token string, metrics []string) ([]models.InsightSeries, error)
	Profile(ctx context.Context, accountID, token string) (*Profile, error)
	ExchangeToken(ctx context.Context, token string) (*models.ExchangedToken, error)
}

type Client struct {
	baseURL    string
	version    string
	appID      string
	appSecret  string
	httpClient HTTPDoer
	breaker    *gobreaker.CircuitBreaker[[]byte]
	limiter    *rate.Limiter
	metrics    providers.MetricsProviderInterface
	logger     providers.Logger
}

// NewHTTPClient returns an http.Client that verifies peer certificates.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func NewClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) ClientInterface {
	return newClient(conf.Graph, NewHTTPClient(conf.Graph.Timeout), logger, metrics)
}

func newClient(gc structures.GraphConfig, doer HTTPDoer, logger providers.Logger, metrics providers.MetricsProviderInterface) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(gc.BaseURL, "/"),
		version:    gc.Version,
		appID:      gc.AppID,
		appSecret:  gc.AppSecret,
		httpClient: doer,
		metrics:    metrics,
		logger:     logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if gc.CallsPerHour > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(gc.CallsPerHour)), gc.CallsPerHour)
	}

	metrics.SetBreakerState(breakerName, 0)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var ue *UpstreamError
			return errors.As(err, &ue) && ue.HTTPStatus < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf(providers.TypeUpstream, "circuit %s: %s -> %s", name, from, to)
			metrics.SetBreakerState(name, breakerStateValue(to))
		},
	})
	return c
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + c.version + "/" + strings.TrimLeft(path, "/")
}

// call executes one request through the limiter and breaker and returns
// the body of a 200 response that carries no error object.
func (c *Client) call(ctx context.Context, method, label, path string, params url.Values) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &TransportError{Op: label, Cause: err}
	}

	c.metrics.ObserveUpstreamDuration(label, time.Since(start))
	c.metrics.IncUpstreamCalls(label, Classify(err))
	if err != nil {
		c.logger.Warnf(providers.TypeUpstream, "%s %s failed: %s", method, label, err)
		return nil, err
	}
	c.logger.Debugf(providers.TypeUpstream, "%s %s ok in %s", method, label, time.Since(start))
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: path, Cause: err}
		}
	}

	target := c.endpoint(path)
	var bodyReader io.Reader
	if method == http.MethodGet {
		target += "?" + params.Encode()
	} else {
		bodyReader = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: path, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: path, Cause: err}
	}

	var envelope struct {
		Error *apiError `json:"error"`
	}
	decodeErr := json.Unmarshal(body, &envelope)
	if resp.StatusCode != http.StatusOK {
		return nil, newUpstreamError(resp.StatusCode, envelope.Error)
	}
	if decodeErr != nil {
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode, Message: "invalid JSON body: " + decodeErr.Error()}
	}
	if envelope.Error != nil {
		return nil, newUpstreamError(resp.StatusCode, envelope.Error)
	}
	return body, nil
}

// Classify names the failure category of an error returned by the client.
func Classify(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsTokenExpired(err):
		return "token_expired"
	case isTransport(err):
		return "transport_error"
	default:
		return "upstream_error"
	}
}

func (c *Client) decodeMap(body []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &UpstreamError{HTTPStatus: http.StatusOK, Message: "invalid JSON body: " + err.Error()}
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	body, err := c.call(ctx, http.MethodGet, "raw", path, params)
	if err != nil {
		return nil, err
	}
	return c.decodeMap(body)
}

func (c *Client) Post(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	body, err := c.call(ctx, http.MethodPost, "raw", path, params)
	if err != nil {
		return nil, err
	}
	return c.decodeMap(body)
}

type rawSeries struct {
	Name       string               `json:"name"`
	Period     string               `json:"period"`
	Values     []models.SeriesValue `json:"values"`
	TotalValue *struct {
		Value any `json:"value"`
	} `json:"total_value"`
}

type insightsEnvelope struct {
	Data []rawSeries `json:"data"`
}

// normalize folds total_value responses into the values shape used by
// time series responses.
func (e insightsEnvelope) normalize() []models.InsightSeries {
	out := make([]models.InsightSeries, 0, len(e.Data))
	for _, s := range e.Data {
		series := models.InsightSeries{Name: s.Name, Period: s.Period, Values: s.Values}
		if len(series.Values) == 0 && s.TotalValue != nil {
			series.Values = []models.SeriesValue{{Value: s.TotalValue.Value}}
		}
		if series.Values == nil {
			series.Values = []models.SeriesValue{}
		}
		out = append(out, series)
	}
	return out
}

func (c *Client) insights(ctx context.Context, label, path string, params url.Values) ([]models.InsightSeries, error) {
	body, err := c.call(ctx, http.MethodGet, label, path, params)
	if err != nil {
		return nil, err
	}
	var env insightsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UpstreamError{HTTPStatus: http.StatusOK, Message: "invalid insights body: " + err.Error()}
	}
	return env.normalize(), nil
}

func (c *Client) AccountInsights(ctx context.Context, accountID, token string, q InsightQuery) ([]models.InsightSeries, error) {
	params := url.Values{}
	params.Set("metric", strings.Join(q.Metrics, ","))
	params.Set("period", q.Period)
	if q.MetricType != "" {
		params.Set("metric_type", q.MetricType)
	}
	if q.Breakdown != "" {
		params.Set("breakdown", q.Breakdown)
	}
	if !q.Since.IsZero() {
		params.Set("since", q.Since.Format(models.DateLayout))
	}
	if !q.Until.IsZero() {
		params.Set("until", q.Until.Format(models.DateLayout))
	}
	params.Set("access_token", token)
	return c.insights(ctx, "account_insights", accountID+"/insights", params)
}

func (c *Client) MediaInsights(ctx context.Context, mediaID, token string, metrics []string) ([]models.InsightSeries, error) {
	params := url.Values{}
	params.Set("metric", strings.Join(metrics, ","))
	params.Set("access_token", token)
	return c.insights(ctx, "media_insights", mediaID+"/insights", params)
}

func (c *Client) listMedia(ctx context.Context, label, path, fields, token string, limit int) ([]models.MediaItem, error) {
	params := url.Values{}
	params.Set("fields", fields)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	params.Set("access_token", token)

	body, err := c.call(ctx, http.MethodGet, label, path, params)
	if err != nil {
		return nil, err
	}
	var env struct {
		Data []models.MediaItem `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UpstreamError{HTTPStatus: http.StatusOK, Message: "invalid media body: " + err.Error()}
	}
	if limit > 0 && len(env.Data) > limit {
		env.Data = env.Data[:limit]
	}
	return env.Data, nil
}

func (c *Client) MediaList(ctx context.Context, accountID, token string, limit int) ([]models.MediaItem, error) {
	return c.listMedia(ctx, "media", accountID+"/media", "id,media_type,timestamp,caption,permalink", token, limit)
}

func (c *Client) Stories(ctx context.Context, accountID, token string, limit int) ([]models.MediaItem, error) {
	return c.listMedia(ctx, "stories", accountID+"/stories", "id,media_type,timestamp", token, limit)
}

func (c *Client) Profile(ctx context.Context, accountID, token string) (*Profile, error) {
	params := url.Values{}
	params.Set("fields", "id,username")
	params.Set("access_token", token)

	body, err := c.call(ctx, http.MethodGet, "profile", accountID, params)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &UpstreamError{HTTPStatus: http.StatusOK, Message: "invalid profile body: " + err.Error()}
	}
	return &p, nil
}

// ExchangeToken trades a token for a long-lived one using the app credentials.
func (c *Client) ExchangeToken(ctx context.Context, token string) (*models.ExchangedToken, error) {
	if c.appID == "" || c.appSecret == "" {
		return nil, errors.New("graph: appId and appSecret are required for token exchange")
	}
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.appID)
	params.Set("client_secret", c.appSecret)
	params.Set("fb_exchange_token", token)

	body, err := c.call(ctx, http.MethodGet, "oauth", "oauth/access_token", params)
	if err != nil {
		return nil, err
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &UpstreamError{HTTPStatus: http.StatusOK, Message: "invalid token body: " + err.Error()}
	}
	if resp.AccessToken == "" {
		return nil, &UpstreamError{HTTPStatus: http.StatusOK, Message: "token exchange returned no access_token"}
	}
	lifetime := DefaultTokenLifetime
	if resp.ExpiresIn > 0 {
		lifetime = time.Duration(resp.ExpiresIn) * time.Second
	}
	return &models.ExchangedToken{AccessToken: resp.AccessToken, TokenType: resp.TokenType, ExpiresIn: lifetime}, nil
}
