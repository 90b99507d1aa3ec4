package services

import (
	"context"
	"fmt"
	"github.com/RoaringBitmap/roaring/v2"
	"instametrics/internal/apperrors"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/repository"
	"math"
	"math/rand/v2"
	"sort"
	"time"
)

const (
	growthWindowDays   = 30
	weeklyOffsetDays   = 7
	minRecordedPoints  = 7
	MaxGrowthDays      = 365
	DefaultGrowthDays  = 30
	simulationBase     = 1000
	followerCountField = "follower_count"
)

type GrowthServiceInterface interface {
	Followers(ctx context.Context, cred *models.AccountCredential) models.Result[models.FollowersSummary]
	GrowthSeries(ctx context.Context, accountID string, days int) models.Result[models.GrowthSeries]
	RecordSnapshot(ctx context.Context, accountID string, count int64, at time.Time) error
}

type GrowthService struct {
	insights InsightServiceInterface
	history  repository.HistoryRepository
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	now      func() time.Time
	rnd      *rand.Rand
}

func NewGrowthService(insights InsightServiceInterface, history repository.HistoryRepository, logger providers.Logger, metrics providers.MetricsProviderInterface) GrowthServiceInterface {
	return &GrowthService{
		insights: insights,
		history:  history,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		rnd:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// calendarDay keys a timestamp by its calendar day regardless of location.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ComputeGrowth derives day, week and month deltas from the snapshots dated
// in the 30 days before today. The week baseline is the nearest snapshot on
// or before today-7, the month baseline is the oldest snapshot in the window.
func ComputeGrowth(current int64, history []models.FollowerSnapshot, today time.Time) models.GrowthMetrics {
	var g models.GrowthMetrics

	day := calendarDay(today)
	windowStart := day.AddDate(0, 0, -growthWindowDays)
	yesterday := day.AddDate(0, 0, -1)
	weekTarget := day.AddDate(0, 0, -weeklyOffsetDays)

	window := make([]models.FollowerSnapshot, 0, len(history))
	for _, s := range history {
		d := calendarDay(s.Date)
		if !d.Before(windowStart) && d.Before(day) {
			window = append(window, s)
		}
	}
	if len(window) == 0 {
		return g
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Date.After(window[j].Date) })

	for _, s := range window {
		if calendarDay(s.Date).Equal(yesterday) {
			g.NewFollowersToday = nonNegative(current - s.FollowerCount)
			g.UnfollowsToday = nonNegative(s.FollowerCount - current)
			break
		}
	}

	for _, s := range window {
		if !calendarDay(s.Date).After(weekTarget) {
			g.NewFollowersWeek = nonNegative(current - s.FollowerCount)
			break
		}
	}

	oldest := window[len(window)-1].FollowerCount
	g.NewFollowersMonth = nonNegative(current - oldest)
	if oldest > 0 {
		g.GrowthRatePercent = round2(float64(current-oldest) / float64(oldest) * 100)
	}
	return g
}

func (s *GrowthService) Followers(ctx context.Context, cred *models.AccountCredential) models.Result[models.FollowersSummary] {
	now := s.now()
	today := calendarDay(now)
	var reasons []string

	history, err := s.history.ListSince(ctx, cred.InstagramAccountID, today.AddDate(0, 0, -growthWindowDays), growthWindowDays+1)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "follower history for %s unavailable: %s", cred.InstagramAccountID, err)
		s.metrics.IncDegraded("follower_history")
		history = nil
		reasons = append(reasons, "history unavailable")
	}

	current := s.insights.AccountInsights(ctx, cred, DefaultPeriod, []string{followerCountField})
	count := int64(current.Data[followerCountField])
	switch {
	case current.IsErr():
		return models.Fail[models.FollowersSummary](current.Err)
	case current.IsDegraded():
		reasons = append(reasons, current.Reason)
		// prefer the last recorded count over the placeholder record
		if len(history) > 0 {
			count = history[0].FollowerCount
		}
	}

	summary := models.FollowersSummary{
		TotalFollowers: count,
		LastUpdated:    now.Format(time.RFC3339),
		GrowthMetrics:  ComputeGrowth(count, history, now),
	}
	if len(reasons) > 0 {
		return models.Degraded(summary, joinReasons(reasons))
	}
	return models.Ok(summary)
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}

// ClampDays bounds a requested growth window to 1..365.
func ClampDays(days int) int {
	switch {
	case days < 1:
		return 1
	case days > MaxGrowthDays:
		return MaxGrowthDays
	default:
		return days
	}
}

func (s *GrowthService) GrowthSeries(ctx context.Context, accountID string, days int) models.Result[models.GrowthSeries] {
	days = ClampDays(days)
	today := calendarDay(s.now())
	start := today.AddDate(0, 0, -(days - 1))

	series := models.GrowthSeries{
		DaysRequested: days,
		DateRange:     models.DateRange{Start: start.Format(models.DateLayout), End: today.Format(models.DateLayout)},
	}

	snapshots, err := s.history.ListSince(ctx, accountID, start, 0)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "growth history for %s unavailable: %s", accountID, err)
		s.metrics.IncDegraded("growth_series")
		series.GrowthData = s.simulate(start, days)
		series.Simulated = true
		series.Coverage = coverage(nil, start, days)
		return models.Degraded(series, "history unavailable: "+err.Error())
	}

	sort.SliceStable(snapshots, func(i, j int) bool { return snapshots[i].Date.Before(snapshots[j].Date) })
	series.RecordsFound = len(snapshots)
	series.Coverage = coverage(snapshots, start, days)

	if len(snapshots) < minRecordedPoints {
		series.GrowthData = s.simulate(start, days)
		series.Simulated = true
		return models.Degraded(series, fmt.Sprintf("only %d recorded snapshots, showing simulated trend", len(snapshots)))
	}

	series.GrowthData = recordedPoints(snapshots)
	return models.Ok(series)
}

func recordedPoints(snapshots []models.FollowerSnapshot) []models.GrowthPoint {
	points := make([]models.GrowthPoint, 0, len(snapshots))
	for i, snap := range snapshots {
		var growth int64
		if i > 0 {
			growth = snap.FollowerCount - snapshots[i-1].FollowerCount
		}
		points = append(points, models.GrowthPoint{
			Date:      snap.Date.Format(models.DateLayout),
			Followers: snap.FollowerCount,
			Growth:    growth,
			Timestamp: snap.RecordedAt.UTC().Format(time.RFC3339),
			Source:    models.SourceRecorded,
		})
	}
	return points
}

// simulate builds a demo walk from base 1000. Weekends grow by 5..20 and
// weekdays move by -2..15; the first day has no growth.
func (s *GrowthService) simulate(start time.Time, days int) []models.GrowthPoint {
	points := make([]models.GrowthPoint, 0, days)
	followers := int64(simulationBase)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		var growth int64
		if i > 0 {
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				growth = 5 + s.rnd.Int64N(16)
			} else {
				growth = -2 + s.rnd.Int64N(18)
			}
		}
		followers += growth
		points = append(points, models.GrowthPoint{
			Date:      d.Format(models.DateLayout),
			Followers: followers,
			Growth:    growth,
			Timestamp: d.Format(time.RFC3339),
			Source:    models.SourceSimulated,
		})
	}
	return points
}

// coverage reports which days in [start, start+days) have a recorded snapshot.
func coverage(snapshots []models.FollowerSnapshot, start time.Time, days int) models.Coverage {
	recorded := roaring.New()
	for _, snap := range snapshots {
		offset := int(calendarDay(snap.Date).Sub(start).Hours() / 24)
		if offset >= 0 && offset < days {
			recorded.Add(uint32(offset))
		}
	}

	expected := roaring.New()
	expected.AddRange(0, uint64(days))
	missing := roaring.AndNot(expected, recorded)

	out := models.Coverage{DaysRecorded: int(recorded.GetCardinality()), MissingDates: make([]string, 0, missing.GetCardinality())}
	it := missing.Iterator()
	for it.HasNext() {
		out.MissingDates = append(out.MissingDates, start.AddDate(0, 0, int(it.Next())).Format(models.DateLayout))
	}
	return out
}

// RecordSnapshot upserts the follower count for the calendar day of at.
func (s *GrowthService) RecordSnapshot(ctx context.Context, accountID string, count int64, at time.Time) error {
	if count <= 0 {
		return apperrors.NewValidationError("refusing to record follower count %d for %s", count, accountID)
	}
	return s.history.Upsert(ctx, models.FollowerSnapshot{
		AccountID:     accountID,
		Date:          calendarDay(at),
		FollowerCount: count,
		RecordedAt:    at,
	})
}
