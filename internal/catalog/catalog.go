// Package catalog holds the metric names the Graph API accepts for each
// entity type and the replacements for metrics it has retired.
package catalog

import (
	"fmt"
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"sort"
	"strings"
)

var validMetrics = map[models.EntityType][]string{
	models.EntityAccount: {
		"accounts_engaged",
		"accounts_reached",
		"follower_count",
		"profile_activity",
		"content_activity",
		"audience_city",
		"audience_country",
		"audience_gender_age",
	},
	models.EntityPost:  {"likes", "comments", "shares", "saves", "reach", "total_interactions"},
	models.EntityStory: {"reach", "replies", "taps_forward", "taps_back", "exits"},
	models.EntityVideo: {"reach", "likes", "comments", "shares", "saves"},
}

var deprecated = map[string]string{
	"impressions":    "reach",
	"video_views":    "reach",
	"plays":          "reach",
	"profile_views":  "profile_activity",
	"website_clicks": "profile_activity",
	"engagement":     "total_interactions",
}

// DemographicMetrics must be queried with period=lifetime.
var DemographicMetrics = []string{"audience_city", "audience_country", "audience_gender_age"}

var totalValueMetrics = map[string]struct{}{
	"accounts_engaged": {},
	"accounts_reached": {},
	"profile_activity": {},
	"content_activity": {},
}

var ErrNoValidMetrics = apperrors.NewValidationError("no valid metrics to query")

type WarningKind string

const (
	WarningReplaced WarningKind = "replaced"
	WarningDropped  WarningKind = "dropped"
)

type Warning struct {
	Kind        WarningKind
	Metric      string
	Replacement string
	EntityType  models.EntityType
}

func (w Warning) String() string {
	if w.Kind == WarningReplaced {
		return fmt.Sprintf("metric %q is deprecated for %s, using %q", w.Metric, w.EntityType, w.Replacement)
	}
	return fmt.Sprintf("metric %q is not valid for %s, dropped", w.Metric, w.EntityType)
}

var index = buildIndex()

func buildIndex() map[models.EntityType]map[string]struct{} {
	idx := make(map[models.EntityType]map[string]struct{}, len(validMetrics))
	for entity, names := range validMetrics {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		idx[entity] = set
	}
	return idx
}

func IsValid(metric string, entity models.EntityType) bool {
	_, ok := index[entity][metric]
	return ok
}

// Metrics returns a copy of the valid set for entity.
func Metrics(entity models.EntityType) []string {
	return append([]string(nil), validMetrics[entity]...)
}

// Definitions lists every catalog entry.
func Definitions() []models.MetricDefinition {
	var out []models.MetricDefinition
	for _, entity := range []models.EntityType{models.EntityAccount, models.EntityPost, models.EntityStory, models.EntityVideo} {
		for _, name := range validMetrics[entity] {
			out = append(out, models.MetricDefinition{EntityType: entity, Name: name})
		}
	}
	return out
}

func Deprecations() []models.DeprecatedMetric {
	out := make([]models.DeprecatedMetric, 0, len(deprecated))
	for old, repl := range deprecated {
		out = append(out, models.DeprecatedMetric{Old: old, Replacement: repl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Old < out[j].Old })
	return out
}

// Validate keeps the requested metrics that are valid for entity,
// substitutes deprecated names whose replacement is valid for entity and
// drops everything else. The result is de-duplicated and sorted.
func Validate(requested []string, entity models.EntityType) ([]string, []Warning) {
	seen := make(map[string]struct{}, len(requested))
	var warnings []Warning

	for _, raw := range requested {
		metric := strings.TrimSpace(raw)
		if metric == "" {
			continue
		}
		if IsValid(metric, entity) {
			seen[metric] = struct{}{}
			continue
		}
		if repl, ok := deprecated[metric]; ok && IsValid(repl, entity) {
			seen[repl] = struct{}{}
			warnings = append(warnings, Warning{Kind: WarningReplaced, Metric: metric, Replacement: repl, EntityType: entity})
			continue
		}
		warnings = append(warnings, Warning{Kind: WarningDropped, Metric: metric, EntityType: entity})
	}

	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, warnings
}

// MustValidate is Validate that fails with ErrNoValidMetrics on an empty result.
func MustValidate(requested []string, entity models.EntityType) ([]string, []Warning, error) {
	metrics, warnings := Validate(requested, entity)
	if len(metrics) == 0 {
		return nil, warnings, ErrNoValidMetrics
	}
	return metrics, warnings, nil
}

// ParseList splits a comma separated metrics query parameter, trimming and
// dropping empty entries. An empty parameter yields nil.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func IsDemographic(metric string) bool {
	for _, m := range DemographicMetrics {
		if m == metric {
			return true
		}
	}
	return false
}

// QueryMode reports the metric_type a metric needs, or "" for plain time series.
func QueryMode(metric string) string {
	if _, ok := totalValueMetrics[metric]; ok {
		return "total_value"
	}
	return ""
}
