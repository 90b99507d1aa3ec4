package models

import "time"

type InsightValue struct {
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// SeriesValue holds a raw upstream value. Demographic metrics carry
// objects here, the rest carry numbers.
type SeriesValue struct {
	Value   any    `json:"value"`
	EndTime string `json:"end_time,omitempty"`
}

type InsightSeries struct {
	Name   string        `json:"name"`
	Period string        `json:"period,omitempty"`
	Values []SeriesValue `json:"values"`
}

// AccountInsights maps metric name to its first reported value plus the
// derived engagement_rate and reach_rate fields.
type AccountInsights map[string]float64

type MediaItem struct {
	ID        string `json:"id"`
	MediaType string `json:"media_type"`
	Timestamp string `json:"timestamp"`
	Caption   string `json:"caption,omitempty"`
	Permalink string `json:"permalink,omitempty"`
}

type PostInsights struct {
	MediaItem
	Insights       []InsightSeries `json:"insights"`
	EngagementRate float64         `json:"engagement_rate"`
}

type StoryInsights struct {
	ID             string          `json:"id"`
	MediaType      string          `json:"media_type"`
	Timestamp      string          `json:"timestamp"`
	Insights       []InsightSeries `json:"insights"`
	CompletionRate float64         `json:"completion_rate"`
}

type AudienceMetric struct {
	Name   string        `json:"name"`
	Values []SeriesValue `json:"values"`
}
